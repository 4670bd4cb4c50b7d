// Command voicekeep is the operator CLI: install/start/stop/uninstall
// the background service, run it in the foreground with `serve`, or
// issue one-off speaker/candidate/profile/watch-folder commands either
// in-process or against a remote voicekeepd via --server-url.
package main

import "voicekeep/internal/cli"

func main() {
	cli.Execute()
}
