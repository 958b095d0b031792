package main

import (
	"context"
	"fmt"

	"github.com/oukeidos/mdtrans/internal/document"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func addEntryAPIFlag(fs *pflag.FlagSet) {
	fs.String("entry-api", "", "Base URL of a blog entry API; the input argument is then an entry ID")
}

// fetchInput loads the document named by input: a Markdown file, or an
// entry of the API configured with --entry-api.
func fetchInput(ctx context.Context, v *viper.Viper, input string) (*document.Document, error) {
	if base := v.GetString("entry-api"); base != "" {
		doc, err := document.NewHTTPStore(base).FetchDocument(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch entry %s: %w", input, err)
		}
		return doc, nil
	}
	if err := validateMarkdownExtension("input", input); err != nil {
		return nil, err
	}
	return document.FileStore{}.FetchDocument(ctx, input)
}
