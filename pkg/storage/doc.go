// Package storage writes downloaded kit files to disk.
//
// Layout under the output root:
//
//	<output>/<club name>/0.jpg
//	<output>/<club name>/1.png
//	<output>/<club name>/manifest.json
//
// Club names are sanitized before use as directory names. Files are written
// to a temporary file and renamed into place, so an interrupted download
// never leaves a truncated file at its final path.
package storage
