package main

import "github.com/oshokin/installer-uploader/cmd/installer-uploader/cmd"

func main() {
	cmd.Execute()
}
