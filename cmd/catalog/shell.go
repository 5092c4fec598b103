package main

import (
	"bufio"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
)

const shellHelp = `Type to search. Suggestions appear after a short pause.
  :submit        search the backing store for the last input
  :show <code>   show an application
  :clear         clear the search
  :quit          leave the shell
`

// interactive is set while the shell runs so debounced suggestions are printed as they arrive.
var interactive atomic.Bool

func newShellCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Search interactively with debounced suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive.Store(true)
			defer interactive.Store(false)

			c.printf("%s", shellHelp)
			var current string
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == ":quit":
					return nil
				case line == ":submit":
					if err := c.sess.Submit(cmd.Context(), current); err != nil {
						c.printf("search failed: %v\n", err)
						continue
					}
					c.printApplications(c.sess.Visible())
				case line == ":clear":
					current = ""
					c.sess.SearchLocal("")
				case strings.HasPrefix(line, ":show "):
					app, err := c.sess.Select(cmd.Context(), strings.TrimSpace(strings.TrimPrefix(line, ":show ")))
					if err != nil {
						c.printf("%v\n", err)
						continue
					}
					c.printApplication(app)
				case strings.HasPrefix(line, ":"):
					c.printf("%s", shellHelp)
				default:
					current = line
					c.sess.Type(line)
				}
			}
			return scanner.Err()
		},
	}
}

func (c *cli) printSuggestions(query string, suggestions []string) {
	if !interactive.Load() || len(suggestions) == 0 {
		return
	}
	c.printf("suggestions for %q: %s\n", query, strings.Join(suggestions, ", "))
}
