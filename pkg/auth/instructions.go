package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCredentialHelp explains where the crawler looks for a directory login
func WriteCredentialHelp(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "CLUB KIT DIRECTORY LOGIN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The directory only shows kit images to signed-in members. Use the")
	fmt.Fprintln(w, "email address and password you sign in to the site with.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The crawler looks for a login in this order:")
	fmt.Fprintln(w, "  1. --account NAME       an account saved with 'clubkit auth login'")
	fmt.Fprintf(w, "  2. %s / %s environment variables (or a .env file)\n", UsernameEnv, PasswordEnv)
	fmt.Fprintln(w, "  3. credentials.username / credentials.password in the config file")
	fmt.Fprintln(w, "  4. the first saved account")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Saved accounts live in the system keychain when one is available,")
	fmt.Fprintf(w, "otherwise in an encrypted file. Set %s to choose its passphrase.\n", PassphraseEnv)
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
