package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lessonbin/quizdoc/internal/document"
)

const usage = `usage:
  quizdoc validate <file>        check a quiz document against the schema
  quizdoc publish <file...>      validate and submit documents to the API

publish reads files from its arguments, or from the CHANGED_FILES
environment variable (space separated) when none are given.

environment for publish:
  QUIZDOC_API_URL   base URL of the quizdoc API (default http://localhost:8080)
  QUIZDOC_TOKEN     service token for the API
`

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "validate":
		if len(os.Args) != 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(runValidate(os.Args[2]))

	case "publish":
		files := os.Args[2:]
		if len(files) == 0 {
			files = strings.Fields(os.Getenv("CHANGED_FILES"))
		}
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "no files to publish")
			os.Exit(2)
		}
		os.Exit(runPublish(files))

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// runValidate prints OK for a conforming document, or one line per
// violation in "<path>: <message>" form.
func runValidate(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}

	_, res, err := document.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	if res.Valid() {
		fmt.Println("OK")
		return 0
	}
	for _, v := range res.Violations {
		fmt.Printf("%s: %s\n", v.Path, v.Message)
	}
	return 1
}
