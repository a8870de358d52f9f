/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// kintoctl inspects and edits the contents of a Kinto server.
//
// Settings are read from .kinto.yml (or the file named by KINTO_CONFIG or
// --config), then from the environment (a .env file is honored), then from
// the command line, each overriding the previous one.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	kinto "github.com/mozilla/kinto-http-go"
	"github.com/mozilla/kinto-http-go/api/buckets"
	"github.com/mozilla/kinto-http-go/api/collections"
	"github.com/mozilla/kinto-http-go/config"
)

const dotenv = ".env"

// app carries what every command needs once the root command has set up.
type app struct {
	out        io.Writer
	configFile string
	flags      config.Config
	conf       *config.Config
	client     *kinto.Client
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		log.WithError(err).Error("kintoctl failed")
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "kintoctl",
		Short:         "Inspect and edit the contents of a Kinto server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file [default: "+config.DefaultConfig+"]")
	flags.StringVar(&a.flags.Server, "server", "", "Kinto server, including its API version")
	flags.StringVar(&a.flags.User, "user", "", "Kinto user")
	flags.StringVar(&a.flags.Password, "password", "", "password of the Kinto user, prompted for if missing")
	flags.StringVar(&a.flags.Token, "token", "", "bearer token, instead of a user")
	flags.StringVar(&a.flags.Bucket, "bucket", "", "default bucket")
	flags.StringVar(&a.flags.Collection, "collection", "", "default collection")
	flags.StringVar(&a.flags.Tool, "tool", "", "value of the X-AUTOMATED-TOOL header")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "logging level")
	flags.StringVar(&a.flags.LogDir, "log-dir", "", "directory to log into, instead of stderr")

	root.AddCommand(
		a.infoCommand(),
		a.bucketsCommand(),
		a.collectionsCommand(),
		a.recordsCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.signerCommand(),
		a.flushCommand(),
	)
	return root
}

func (a *app) setup() error {
	if err := config.LoadEnv(dotenv); err != nil {
		return err
	}
	conf, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	conf.Override(a.flags)
	if err := conf.SetupLogging(); err != nil {
		return err
	}
	client, err := conf.Client()
	if err != nil {
		return err
	}
	a.conf = conf
	a.client = client
	log.WithField("server", conf.Server).Debug("configured")
	return nil
}

// bucket returns the bucket named by the first of args, or the configured one.
func (a *app) bucket(args []string) (*buckets.Bucket, error) {
	id := a.conf.Bucket
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return nil, errors.New("no bucket given, and none configured")
	}
	return a.client.Bucket(id), nil
}

// collection returns the collection named by the first two of args, or the
// configured one.
func (a *app) collection(args []string) (*collections.Collection, error) {
	bucket, err := a.bucket(args)
	if err != nil {
		return nil, err
	}
	id := a.conf.Collection
	if len(args) > 1 {
		id = args[1]
	}
	if id == "" {
		return nil, errors.New("no collection given, and none configured")
	}
	return collections.NewCollection(bucket, id), nil
}
