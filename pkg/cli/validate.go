package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/oasstub/pkg/cli/internal/output"
	"github.com/getmockd/oasstub/pkg/definitions"
	"github.com/getmockd/oasstub/pkg/engine"
	"github.com/getmockd/oasstub/pkg/plugin"
	"github.com/getmockd/oasstub/pkg/store/memory"
)

// ValidationResult is the outcome for one definitions file.
type ValidationResult struct {
	File  string `json:"file"`
	API   string `json:"api,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check definitions files without starting the server",
		Long: `Check definitions files the way the server does on registration: the
specification must parse, every configuration path must exist in it, delays
must be well formed and every plugin must compile.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := validateFiles(cmd, args)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				if err := output.JSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				tw := output.Table(cmd.OutOrStdout())
				fmt.Fprintln(tw, "FILE\tAPI\tRESULT")
				for _, r := range results {
					result := "ok"
					if !r.Valid {
						result = r.Error
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.File, r.API, result)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			invalid := 0
			for _, r := range results {
				if !r.Valid {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files are invalid", invalid, len(results))
			}
			return nil
		},
	}
}

// validateFiles registers every file into a throwaway in-memory registry.
func validateFiles(cmd *cobra.Command, files []string) ([]ValidationResult, error) {
	plugins, err := plugin.NewEngine()
	if err != nil {
		return nil, err
	}
	registry := engine.NewRegistry(definitions.New(memory.NewPersistentStore()), plugins, nil)

	results := make([]ValidationResult, 0, len(files))
	for _, path := range files {
		r := ValidationResult{File: path}
		name, defs, err := definitions.ReadFile(path)
		if err == nil {
			r.API = name
			err = registry.Save(cmd.Context(), name, defs)
		}
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Valid = true
		}
		results = append(results, r)
	}
	return results, nil
}
