// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/binform/binform/codec"
	"github.com/binform/binform/schema"
)

var (
	encodeIn  string
	encodeOut string
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a JSON value tree to binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSchema(); err != nil {
			return err
		}
		doc, err := schema.ParseFile(schemaPath)
		if err != nil {
			return err
		}

		raw, err := readInput(encodeIn)
		if err != nil {
			return err
		}
		var value map[string]any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("parse input value: %w", err)
		}

		c := codec.New(doc, codec.WithLogger(log.Logger))
		wire, err := c.Encode(value)
		if err != nil {
			return err
		}
		if err := writeOutput(encodeOut, wire); err != nil {
			return err
		}
		log.Info().Str("schema", doc.Name).Int("bytes", len(wire)).Msg("encoded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVarP(&encodeIn, "input", "i", "", "JSON value file (default stdin)")
	encodeCmd.Flags().StringVarP(&encodeOut, "output", "o", "", "binary output file (default stdout)")
}
