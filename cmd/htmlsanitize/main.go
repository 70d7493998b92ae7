// Command htmlsanitize reads untrusted HTML on stdin and writes the
// sanitized fragment to stdout.
//
//	cat untrusted.html | htmlsanitize -policy formatting,links,images
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	sanitize "github.com/dpotapov/htmlsanitizer"
)

func main() {
	var (
		policyList = flag.String("policy", "formatting,links,images,tables",
			"comma-separated policies to join: formatting, links, images, tables, styles")
		nestingLimit = flag.Int("nesting-limit", 0, "maximum open-element depth in the output (0 = unbounded)")
		verbose      = flag.Bool("v", false, "log dropped elements and attributes to stderr")
	)
	flag.Parse()

	policy, err := buildPolicy(*policyList)
	if err != nil {
		fmt.Fprintln(os.Stderr, "htmlsanitize:", err)
		os.Exit(2)
	}

	opts := []sanitize.Option{}
	if *nestingLimit > 0 {
		opts = append(opts, sanitize.WithNestingLimit(*nestingLimit))
	}
	if *verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, sanitize.WithLogger(logger))
	}

	s, err := sanitize.New(policy, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "htmlsanitize:", err)
		os.Exit(2)
	}

	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "htmlsanitize: read stdin:", err)
		os.Exit(1)
	}
	if _, err := os.Stdout.Write(s.SanitizeBytes(in)); err != nil {
		fmt.Fprintln(os.Stderr, "htmlsanitize: write stdout:", err)
		os.Exit(1)
	}
}

func buildPolicy(list string) (*sanitize.Policy, error) {
	policy, err := sanitize.NewPolicy()
	if err != nil {
		return nil, err
	}
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(name) {
		case "formatting":
			policy = policy.Join(sanitize.BasicFormatting())
		case "links":
			policy = policy.Join(sanitize.Links())
		case "images":
			policy = policy.Join(sanitize.Images())
		case "tables":
			policy = policy.Join(sanitize.Tables())
		case "styles":
			styles, err := sanitize.NewPolicy(sanitize.AllowStyleAttr())
			if err != nil {
				return nil, err
			}
			policy = policy.Join(styles)
		case "":
		default:
			return nil, fmt.Errorf("unknown policy %q", name)
		}
	}
	return policy, nil
}
