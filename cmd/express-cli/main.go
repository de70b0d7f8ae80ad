package main

import "github.com/oshokin/express-cli/cmd/express-cli/cmd"

func main() {
	cmd.Execute()
}
