package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/output"
)

var domainsFile string

var domainCmd = &cobra.Command{
	Use:   "domain <domain>",
	Short: "Check one domain against the DNS firewall",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline) error {
			r := p.service.CheckDomain(ctx, args[0])
			return render(r, output.DomainsTable(map[string]*core.DomainValidationResult{r.Domain: r}))
		})
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains [domains...]",
	Short: "Check several domains against the DNS firewall",
	Long: `Check several domains concurrently. Domains are taken from the arguments
and, with --file, from a file with one domain per line ("-" reads stdin).

Examples:
  threat-scan domains example.com paypa1.com
  threat-scan domains --file domains.txt --json`,
	RunE: runDomains,
}

func init() {
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(domainsCmd)

	domainsCmd.Flags().StringVarP(&domainsFile, "file", "f", "", "Read domains from a file, one per line")
}

func runDomains(_ *cobra.Command, args []string) error {
	domains := append([]string{}, args...)
	if domainsFile != "" {
		fromFile, err := readDomainList(domainsFile)
		if err != nil {
			return err
		}
		domains = append(domains, fromFile...)
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains given")
	}

	return withPipeline(func(ctx context.Context, p *pipeline) error {
		results := p.service.CheckDomains(ctx, domains)
		return render(results, output.DomainsTable(results))
	})
}

// readDomainList reads one domain per line, skipping blanks and # comments
func readDomainList(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
	}

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return domains, nil
}
