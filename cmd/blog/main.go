package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(configFlag("serve", os.Args[2:]))
	case "migrate":
		err = runMigrate(configFlag("migrate", os.Args[2:]))
	case "encode":
		err = runEncode(os.Args[2:], os.Stdin, os.Stdout)
	case "decode":
		err = runDecode(os.Stdin, os.Stdout)
	case "version":
		fmt.Printf("blog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configFlag(cmd string, args []string) string {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	path := fs.String("config", "", "configuration file (default: .env when present)")
	_ = fs.Parse(args)
	return *path
}

func printUsage() {
	fmt.Println(`blog - a small server-rendered blog

Usage:
  blog <command> [arguments]

Commands:
  serve [-config file]     Start the HTTP server
  migrate [-config file]   Create the blog_posts table if missing
  encode [file]            Print the base64 body for a post (stdin when no file)
  decode                   Print the text of a base64 body read from stdin
  version                  Print the blog version
  help                     Show this help message

Configuration is read from the environment (DATABASE_URL is required),
layered over the config file or .env.`)
}
