/*
Package crawler drives a whole directory crawl.

A Crawler logs in through the browser page, hands the session cookies to the
site client, then walks the results table with a pagination.Controller. Each
ready page is parsed into club records, records whose club name was already
seen earlier in the run are dropped, and the rest are downloaded before the
controller is allowed to advance.

Row and file failures are logged and counted in the report. Authentication,
navigation and page-load failures stop the crawl; the returned error names the
last page that completed.

Basic usage:

	c, err := crawler.New(crawler.Options{
		Config:     cfg,
		Page:       session,
		Client:     client,
		Downloader: kits,
	})
	if err != nil {
		return err
	}
	rep, err := c.Run(ctx)
*/
package crawler
