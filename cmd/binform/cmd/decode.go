// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/binform/binform/codec"
	"github.com/binform/binform/schema"
)

var (
	decodeIn       string
	decodeOut      string
	decodeStrict   bool
	decodeNoVerify bool
	decodeMaxArray int
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode binary data to a JSON value tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSchema(); err != nil {
			return err
		}
		doc, err := schema.ParseFile(schemaPath)
		if err != nil {
			return err
		}

		data, err := readInput(decodeIn)
		if err != nil {
			return err
		}

		c := codec.New(doc,
			codec.WithLogger(log.Logger),
			codec.WithStrictLength(decodeStrict),
			codec.WithChecksumVerification(!decodeNoVerify),
			codec.WithMaxArrayLength(decodeMaxArray),
		)
		value, consumed, err := c.DecodeConsumed(data)
		if err != nil {
			return err
		}
		if consumed < len(data) {
			log.Warn().Int("trailing", len(data)-consumed).Msg("input has trailing bytes")
		}

		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		if err := writeOutput(decodeOut, append(out, '\n')); err != nil {
			return err
		}
		log.Info().Str("schema", doc.Name).Int("consumed", consumed).Msg("decoded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&decodeIn, "input", "i", "", "binary input file (default stdin)")
	decodeCmd.Flags().StringVarP(&decodeOut, "output", "o", "", "JSON output file (default stdout)")
	decodeCmd.Flags().BoolVar(&decodeStrict, "strict", false, "fail on trailing bytes")
	decodeCmd.Flags().BoolVar(&decodeNoVerify, "no-verify", false, "skip checksum verification")
	decodeCmd.Flags().IntVar(&decodeMaxArray, "max-array", 1<<20, "maximum claimed array length")
}
