// Command trackerctl inspects and edits a user's day against the configured
// backend, going through the same ledger rules as the web app.
package main

func main() {
	Execute()
}
