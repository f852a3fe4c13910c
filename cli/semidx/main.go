package main

import (
	"os"

	semidxcmder "github.com/chataize/semantic-index/cmd/semidx"
)

func main() {
	cmd := semidxcmder.NewSemidxCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
