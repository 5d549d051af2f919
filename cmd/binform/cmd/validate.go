// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/binform/binform/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile a schema and report problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSchema(); err != nil {
			return err
		}
		doc, err := schema.ParseFile(schemaPath)
		if err != nil {
			return err
		}
		log.Info().
			Str("name", doc.Name).
			Int("version", doc.Version).
			Str("endianness", doc.Endianness).
			Int("fields", len(doc.Fields)).
			Msg("schema is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
