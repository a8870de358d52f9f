/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"
	"gopkg.in/yaml.v2"

	kinto "github.com/mozilla/kinto-http-go"
	"github.com/mozilla/kinto-http-go/api/auth"
)

// Environment variables, which override the configuration file.
const (
	// The YAML configuration file to use [default: .kinto.yml]
	KintoConfig = "KINTO_CONFIG"
	// The Kinto server, including its API version (E.G. https://settings.stage.mozaws.net/v1)
	KintoServer = "KINTO_SERVER"
	// Credentials. Either a user and a password, or a token, or nothing at all.
	KintoUser     = "KINTO_USER"
	KintoPassword = "KINTO_PASSWORD"
	KintoToken    = "KINTO_TOKEN"
	// The default bucket and collection of commands that need one.
	KintoBucket     = "KINTO_BUCKET"
	KintoCollection = "KINTO_COLLECTION"
	// Logging level. Valid values are "panic", "fatal", "error",
	// "warn", "warning", "info", "debug", and "trace". [default: info]
	LogLevel = "LOG_LEVEL"
	// Target directory for logs. Each run of the tool will be logged to the timestamp
	// of when it was ran. [default: stdout/stderr]
	LogDir = "LOG_DIR"
)

const DefaultConfig = ".kinto.yml"
const DefaultServer = "http://localhost:8888/v1"

type Config struct {
	Server     string `mapstructure:"server"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Token      string `mapstructure:"token"`
	Bucket     string `mapstructure:"bucket"`
	Collection string `mapstructure:"collection"`
	Tool       string `mapstructure:"tool"`
	LogLevel   string `mapstructure:"loglevel"`
	LogDir     string `mapstructure:"logdir"`
	// Keys of the configuration file that none of the above recognise.
	AdditionalConfig map[string]string `mapstructure:"-"`
}

// ReadPassword prompts for the password of user on the controlling terminal.
var ReadPassword = func(user string) (string, error) {
	fmt.Fprintf(os.Stderr, "Please enter the password for user %s\n", user)
	password, err := terminal.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return string(password), nil
}

// LoadEnv loads the given dotenv files into the environment, skipping
// those that do not exist. Variables already set are not overridden.
func LoadEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(err, "%s appears to be malformed", file)
		}
	}
	return nil
}

// Load reads the given YAML file (or the one named by KINTO_CONFIG, or
// .kinto.yml) and then applies the environment on top of it. A missing
// file is only an error if it was explicitly asked for.
func Load(filename string) (*Config, error) {
	explicit := filename != ""
	if !explicit {
		filename = os.Getenv(KintoConfig)
		explicit = filename != ""
	}
	if filename == "" {
		filename = DefaultConfig
	}
	conf := &Config{Server: DefaultServer}
	data, err := ioutil.ReadFile(filename)
	switch {
	case err == nil:
		if err := conf.decode(data); err != nil {
			return nil, errors.Wrapf(err, "malformed configuration file %s", filename)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(err, "failed to read configuration file")
	}
	conf.FromEnv()
	return conf, nil
}

func (c *Config) decode(data []byte) error {
	// Load the yaml into a map first - so we capture additional config options
	configMap := map[string]string{}
	if err := yaml.Unmarshal(data, &configMap); err != nil {
		return err
	}
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   c,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(configMap); err != nil {
		return err
	}
	// Loop over the unused keys, add them to additional config
	for _, key := range md.Unused {
		if c.AdditionalConfig == nil {
			c.AdditionalConfig = make(map[string]string)
		}
		c.AdditionalConfig[key] = configMap[key]
	}
	return nil
}

// FromEnv overrides every setting whose environment variable is set.
func (c *Config) FromEnv() {
	for variable, target := range map[string]*string{
		KintoServer:     &c.Server,
		KintoUser:       &c.User,
		KintoPassword:   &c.Password,
		KintoToken:      &c.Token,
		KintoBucket:     &c.Bucket,
		KintoCollection: &c.Collection,
		LogLevel:        &c.LogLevel,
		LogDir:          &c.LogDir,
	} {
		if value := os.Getenv(variable); value != "" {
			*target = value
		}
	}
}

// Override replaces every setting that is set in overrides (typically
// built from command line flags).
func (c *Config) Override(overrides Config) {
	for target, value := range map[*string]string{
		&c.Server:     overrides.Server,
		&c.User:       overrides.User,
		&c.Password:   overrides.Password,
		&c.Token:      overrides.Token,
		&c.Bucket:     overrides.Bucket,
		&c.Collection: overrides.Collection,
		&c.Tool:       overrides.Tool,
		&c.LogLevel:   overrides.LogLevel,
		&c.LogDir:     overrides.LogDir,
	} {
		if value != "" {
			*target = value
		}
	}
}

// Authenticator returns the authenticator matching the configured
// credentials, prompting for the password of a user that has none.
func (c *Config) Authenticator() (auth.Authenticator, error) {
	if c.Token == "" && c.User != "" && c.Password == "" {
		password, err := ReadPassword(c.User)
		if err != nil {
			return nil, err
		}
		c.Password = password
	}
	return KintoPrincipal(c.User, c.Password, c.Token)
}

// KintoPrincipal returns a user authenticator, a token authenticator, or
// no authentication at all. Any other combination is an error.
func KintoPrincipal(user, password, token string) (auth.Authenticator, error) {
	if user == "" && password == "" && token == "" {
		return &auth.Unauthenticated{}, nil
	}
	if user != "" && password != "" && token != "" ||
		user == "" && password != "" ||
		user != "" && password == "" {
		return nil, fmt.Errorf("an invalid combination of 'user', 'password', and 'token' was set")
	}
	if token != "" {
		return &auth.Token{Token: token}, nil
	}
	return &auth.User{Username: user, Password: password}, nil
}

// Client returns a client targeting the configured server with the
// configured credentials.
func (c *Config) Client() (*kinto.Client, error) {
	client, err := kinto.NewClientFromStr(c.Server)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct Kinto client from URL")
	}
	principal, err := c.Authenticator()
	if err != nil {
		return nil, errors.Wrap(err, "failed to set Kinto credentials")
	}
	client = client.WithAuthenticator(principal)
	if c.Tool != "" {
		client = client.WithToolHeader(c.Tool)
	}
	return client, nil
}

func (c *Config) ParseLogLevel() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(c.LogLevel)
}

// SetupLogging configures the standard logger: JSON output with call
// site information, at the configured level, to stderr or to a new file
// under the configured log directory.
func (c *Config) SetupLogging() error {
	level, err := c.ParseLogLevel()
	if err != nil {
		return errors.Wrapf(err, "unexpected logging level %s, expected one of either "+
			"panic, fatal, error, warn, warning info, debug, trace", c.LogLevel)
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&log.JSONFormatter{PrettyPrint: true})
	if c.LogDir == "" {
		// Use stdout/stderr
		return nil
	}
	if err := os.MkdirAll(c.LogDir, 0755); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(c.LogDir, time.Now().UTC().Format(time.RFC3339)))
	if err != nil {
		return err
	}
	log.SetOutput(out)
	return nil
}
