package main

import (
	"log"

	"github.com/xxxsen/tgdav/cmd/tgdav/cmd"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		log.Fatalf("exec cmd failed, err:%v", err)
	}
}
