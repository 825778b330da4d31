// The main package for the newspipe executable.
package main

import (
	"github.com/brbzalck/projeto-news-reddit-power-automate/cmd"
)

func main() {
	cmd.Execute()
}
