package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/search"
	"github.com/bcnelson/app-catalog/internal/transfer"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		domains  []string
		statuses []string
		page     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, optionally filtered by domain and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := domain.FilterState{Domains: domains}
			for _, s := range statuses {
				st := domain.Status(s)
				if !st.Valid() {
					return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, s)
				}
				f.Statuses = append(f.Statuses, st)
			}
			c.sess.SetFilters(f)

			p := search.Paginate(c.sess.Visible(), page, c.cfg.Search.PageSize)
			c.printApplications(p.Items)
			c.printf("page %d of %d (%d applications)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Functional domain to include (repeatable)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Status to include (repeatable)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search applications and record the query in the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if server {
				if err := c.sess.Submit(cmd.Context(), query); err != nil {
					return err
				}
			} else {
				c.sess.SearchLocal(query)
			}
			c.printApplications(c.sess.Visible())
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "Search in the backing store instead of the loaded list")
	return cmd
}

func newSuggestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <query>",
		Short: "Show name and app code suggestions for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.sess.Type(strings.Join(args, " "))
			c.sess.Flush()
			for _, s := range c.sess.Suggestions() {
				c.printf("%s\n", s)
			}
			return nil
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <appCode>",
		Short: "Show one application with its stakeholders and relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.sess.Select(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.printApplication(app)
			return nil
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create applications from a JSON catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			res, err := c.sess.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			c.printf("imported %d applications, %d failed\n", len(res.Created), len(res.Failed))
			for _, f := range res.Failed {
				c.printf("  record %d %s: %s\n", f.Index, f.AppCode, f.Error)
			}
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every application to a dated file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := c.sess.Export(&buf, format); err != nil {
				return err
			}
			path := filepath.Join(dir, transfer.Filename(time.Now(), format))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			c.printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", transfer.FormatJSON, "Export format (json, yaml)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the export to")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var clearHistory bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearHistory {
				c.sess.ClearHistory()
				c.printf("search history cleared\n")
				return nil
			}
			for i, q := range c.sess.State().SearchHistory {
				c.printf("%2d  %s\n", i+1, q)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "Clear the search history")
	return cmd
}

func newThemeCmd(c *cli) *cobra.Command {
	var toggle bool
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or toggle dark mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dark := c.sess.State().DarkMode
			if toggle {
				dark = c.sess.ToggleDarkMode()
			}
			if dark {
				c.printf("dark\n")
			} else {
				c.printf("light\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&toggle, "toggle", false, "Switch between light and dark mode")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := search.ComputeStats(c.sess.State().Applications)
			c.outMu.Lock()
			defer c.outMu.Unlock()
			tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n", st.Total)
			fmt.Fprintf(tw, "Active\t%d\n", st.Active)
			fmt.Fprintf(tw, "Under Development\t%d\n", st.InDevelopment)
			fmt.Fprintf(tw, "Deprecated\t%d\n", st.Deprecated)
			fmt.Fprintf(tw, "Domains\t%d\n", st.Domains)
			fmt.Fprintf(tw, "Technologies\t%d\n", st.Technologies)
			return tw.Flush()
		},
	}
}

func (c *cli) printApplications(apps []*domain.Application) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if len(apps) == 0 {
		fmt.Fprintln(c.out, "no applications found")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tSTATUS\tDOMAINS")
	for _, app := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", app.AppCode, app.Name, app.Status, strings.Join(app.FunctionalDomains, ", "))
	}
	_ = tw.Flush()
}

func (c *cli) printApplication(app *domain.Application) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Code\t%s\n", app.AppCode)
	fmt.Fprintf(tw, "Name\t%s\n", app.Name)
	fmt.Fprintf(tw, "Status\t%s\n", app.Status)
	fmt.Fprintf(tw, "Description\t%s\n", app.Description)
	fmt.Fprintf(tw, "Domains\t%s\n", strings.Join(app.FunctionalDomains, ", "))
	fmt.Fprintf(tw, "Stack\t%s\n", strings.Join(app.TechnicalStack, ", "))
	for _, r := range domain.Roles {
		if name := app.Stakeholders.Get(r); name != "" {
			fmt.Fprintf(tw, "%s\t%s\n", r.Label(), name)
		}
	}
	if len(app.RelatedApps.Functional) > 0 {
		fmt.Fprintf(tw, "Functional links\t%s\n", strings.Join(app.RelatedApps.Functional, ", "))
	}
	if len(app.RelatedApps.Technical) > 0 {
		fmt.Fprintf(tw, "Technical links\t%s\n", strings.Join(app.RelatedApps.Technical, ", "))
	}
	_ = tw.Flush()
}
