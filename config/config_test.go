/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/kinto-http-go/api/auth"
)

func write(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	for _, variable := range []string{KintoConfig, KintoServer, KintoUser, KintoPassword, KintoToken, KintoBucket, KintoCollection, LogLevel, LogDir} {
		t.Setenv(variable, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	file := write(t, "kinto.yml", `
server: https://settings.stage.mozaws.net/v1
user: admin
password: s3cr3t
bucket: security-state-staging
collection: onecrl
reviewers: alice
`)
	t.Setenv(KintoCollection, "intermediates")

	conf, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "https://settings.stage.mozaws.net/v1", conf.Server)
	assert.Equal(t, "security-state-staging", conf.Bucket)
	assert.Equal(t, "intermediates", conf.Collection)
	assert.Equal(t, map[string]string{"reviewers": "alice"}, conf.AdditionalConfig)

	conf.Override(Config{Bucket: "main-workspace"})
	assert.Equal(t, "main-workspace", conf.Bucket)
	assert.Equal(t, "intermediates", conf.Collection)

	principal, err := conf.Authenticator()
	require.NoError(t, err)
	assert.Equal(t, &auth.User{Username: "admin", Password: "s3cr3t"}, principal)
}

func TestLoadMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, conf.Server)

	_, err = Load(filepath.Join(dir, "nope.yml"))
	assert.Error(t, err)

	_, err = Load(write(t, "broken.yml", "server: [unterminated"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(KintoToken)
	file := write(t, "config.env", "KINTO_TOKEN=abc\n")
	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env"), file))
	defer os.Unsetenv(KintoToken)

	conf, err := Load(write(t, "kinto.yml", "server: http://localhost:8888/v1\n"))
	require.NoError(t, err)
	principal, err := conf.Authenticator()
	require.NoError(t, err)
	assert.Equal(t, &auth.Token{Token: "abc"}, principal)
}

func TestKintoPrincipal(t *testing.T) {
	tests := []struct {
		user, password, token string
		want                  auth.Authenticator
	}{
		{"", "", "", &auth.Unauthenticated{}},
		{"admin", "s3cr3t", "", &auth.User{Username: "admin", Password: "s3cr3t"}},
		{"", "", "abc", &auth.Token{Token: "abc"}},
		{"admin", "s3cr3t", "abc", nil},
		{"", "s3cr3t", "", nil},
		{"admin", "", "", nil},
	}
	for _, test := range tests {
		principal, err := KintoPrincipal(test.user, test.password, test.token)
		if test.want == nil {
			assert.Error(t, err, "%+v", test)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.want, principal)
	}
}

func TestPasswordPrompt(t *testing.T) {
	prompt := ReadPassword
	defer func() { ReadPassword = prompt }()
	ReadPassword = func(user string) (string, error) {
		assert.Equal(t, "admin", user)
		return "typed", nil
	}
	conf := &Config{Server: DefaultServer, User: "admin"}
	client, err := conf.Client()
	require.NoError(t, err)
	assert.Equal(t, &auth.User{Username: "admin", Password: "typed"}, client.Config().Authenticator())
}

func TestSetupLogging(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)
	dir := filepath.Join(t.TempDir(), "logs")
	conf := &Config{LogLevel: "debug", LogDir: dir}
	require.NoError(t, conf.SetupLogging())
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, (&Config{LogLevel: "chatty"}).SetupLogging())
}
