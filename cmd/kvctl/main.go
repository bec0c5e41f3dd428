package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	kv "github.com/DeresiuPhoi/distributed-lab2"
)

const usage = `usage: kvctl [flags] <command> [arguments]

Commands:
  put <key> <value>   write a value through the node
  get <key>           read a key from the node's local state
  status              print the node's status summary

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	node := flag.String("node", "127.0.0.1:8000", "address of the node to talk to")
	timeout := flag.Duration("timeout", 5*time.Second, "time to wait for the node to answer")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := kv.NewClient(*node)

	var result any
	var err error
	switch flag.Arg(0) {
	case "put":
		if flag.NArg() != 3 {
			flag.Usage()
			os.Exit(2)
		}
		result, err = client.Put(ctx, flag.Arg(1), flag.Arg(2))
	case "get":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		result, err = client.Get(ctx, flag.Arg(1))
	case "status":
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		result, err = client.Status(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode response: %v", err)
	}
	fmt.Println(string(output))
}
