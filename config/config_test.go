package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
}

func TestLoadParsesYAMLSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yml")
	doc := `
global:
  archive_uri: s3+minio://archive-bucket
  upload_uri: s3://store-bucket
  scratch_dir: /tmp/scratch
logging:
  level: debug
mail:
  smtp_host: mail.example.org
  smtp_port: 587
harvester:
  config_dir: /etc/harvesters
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3+minio://archive-bucket", conf.Global.ArchiveURI)
	assert.Equal(t, "debug", conf.Logging.Level)
	assert.Equal(t, 587, conf.Mail.SMTPPort)
	assert.Equal(t, "/etc/harvesters", conf.Harvester.ConfigDir)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/pipeline.yml")
	assert.Error(t, err)
}
