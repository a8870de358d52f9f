/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/api/records"
	"github.com/mozilla/kinto-http-go/internal/csvio"
	"github.com/mozilla/kinto-http-go/internal/snapshot"
	"github.com/mozilla/kinto-http-go/plugins/kintosigner"
	"github.com/mozilla/kinto-http-go/transaction"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print what the server tells about itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.client.ServerInfo()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s (API %s)\n", info.ProjectName, info.ProjectVersion, info.HTTPAPIVersion)
			fmt.Fprintf(a.out, "batch_max_requests: %d\n", info.Settings.BatchMaxRequests)
			if info.User != nil {
				fmt.Fprintf(a.out, "authenticated as %s\n", info.User.ID)
			} else {
				fmt.Fprintln(a.out, "not authenticated")
			}
			return nil
		},
	}
}

func (a *app) bucketsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets readable by the configured principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := a.client.ListBuckets()
			if err != nil {
				return err
			}
			for _, b := range bs {
				fmt.Fprintf(a.out, "%s\t%d\n", b.ID(), b.Timestamp())
			}
			return nil
		},
	}
}

func (a *app) collectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "collections [bucket]",
		Short: "List the collections of a bucket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := a.bucket(args)
			if err != nil {
				return err
			}
			cs, err := collections.List(bucket)
			if err != nil {
				return err
			}
			for _, c := range cs {
				status, _ := c.Data()["status"].(string)
				fmt.Fprintf(a.out, "%s\t%d\t%s\n", c.ID(), c.Timestamp(), status)
			}
			return nil
		},
	}
}

func (a *app) recordsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "records [bucket] [collection]",
		Short: "Print the records of a collection as CSV",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.collection(args)
			if err != nil {
				return err
			}
			var recs []*records.Record
			if limit > 0 {
				recs, err = records.ListPaged(collection, limit)
			} else {
				recs, err = records.List(collection)
			}
			if err != nil {
				return err
			}
			return csvio.Write(a.out, recs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "records per page [default: the server's]")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv> [bucket] [collection]",
		Short: "Create the records of a CSV file, removing them all should any fail",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.collection(args[1:])
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			recs, err := csvio.Read(in, collection)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[0])
			}
			max, err := a.client.BatchMaxRequests()
			if err != nil {
				return err
			}
			txs, err := transaction.Import(collection, recs, max)
			if err != nil {
				return err
			}
			if err := txs.AutoRollbackOnError(true).Commit(); err != nil {
				return err
			}
			log.WithField("records", len(recs)).Info("import complete")
			fmt.Fprintf(a.out, "imported %d records\n", len(recs))
			return nil
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <database> [bucket] [collection]",
		Short: "Save the records of a collection into a SQLite database",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.collection(args[1:])
			if err != nil {
				return err
			}
			store, err := snapshot.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()
			previous, err := store.Timestamp(collection)
			if err != nil {
				return err
			}
			recs, err := records.List(collection)
			if err != nil {
				return err
			}
			if err := store.Save(collection, recs); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %d records (previous snapshot: %d)\n", len(recs), previous)
			return nil
		},
	}
}

func (a *app) signerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signer <status> [bucket] [collection]",
		Short: "Ask the signer to move a collection to a status (to-review, to-sign, to-rollback...)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.collection(args[1:])
			if err != nil {
				return err
			}
			if err := kintosigner.Transition(collection, kintosigner.Status(args[0])); err != nil {
				return err
			}
			status, _ := collection.Data()["status"].(string)
			fmt.Fprintf(a.out, "%s/%s: %s\n", collection.Bucket.ID(), collection.ID(), status)
			return nil
		},
	}
}

func (a *app) flushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Delete everything stored by the server (test servers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Flush()
		},
	}
}
