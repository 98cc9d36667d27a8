package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restq/internal/relation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "database:\n  dsn: postgres://localhost/app\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/app", cfg.Database.DSN)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Query.DefaultPerPage)
	assert.Equal(t, 100, cfg.Query.MaxPerPage)
	assert.Equal(t, "offset", cfg.Query.DefaultPagination)
	assert.Equal(t, 7*24*time.Hour, cfg.Query.RecentWindow)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
database:
  role: reporting
server:
  port: 9090
logging:
  level: debug
  format: text
query:
  default_per_page: 10
  max_per_page: 50
  default_pagination: cursor
cache:
  enabled: true
  ttl: 30s
`))
	require.NoError(t, err)

	assert.Equal(t, "reporting", cfg.Database.Role)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Query.DefaultPerPage)
	assert.Equal(t, "cursor", cfg.Query.DefaultPagination)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "server:\n  prot: 9090\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFile(writeConfig(t, "database:\n  dsn: postgres://localhost/app\n"))
		require.NoError(t, err)
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		result := base().Validate()
		assert.False(t, result.HasErrors(), result.Error())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.True(t, cfg.Validate().HasErrors())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Level = "verbose"
		assert.True(t, cfg.Validate().HasErrors())
	})

	t.Run("max below default per page", func(t *testing.T) {
		cfg := base()
		cfg.Query.MaxPerPage = 5
		assert.True(t, cfg.Validate().HasErrors())
	})

	t.Run("bad pagination mode", func(t *testing.T) {
		cfg := base()
		cfg.Query.DefaultPagination = "keyset"
		assert.True(t, cfg.Validate().HasErrors())
	})

	t.Run("cache enabled without ttl", func(t *testing.T) {
		cfg := base()
		cfg.Cache.Enabled = true
		cfg.Cache.TTL = 0
		assert.True(t, cfg.Validate().HasErrors())
	})

	t.Run("missing dsn warns", func(t *testing.T) {
		cfg := base()
		cfg.Database.DSN = ""
		result := cfg.Validate()
		assert.False(t, result.HasErrors())
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("entity errors", func(t *testing.T) {
		cfg := base()
		cfg.Entities = []EntityConfig{
			{Name: "posts", Table: "posts", Sortable: []string{"id"}, DefaultSort: "-created_at"},
		}
		assert.True(t, cfg.Validate().HasErrors())

		cfg.Entities = []EntityConfig{
			{Name: "posts", Table: "posts"},
			{Name: "posts", Table: "posts"},
		}
		assert.True(t, cfg.Validate().HasErrors())

		cfg.Entities = []EntityConfig{
			{Name: "posts", Table: "posts", Relationships: []RelationshipConfig{
				{Name: "author", Kind: "belongs_to_some", Table: "users"},
			}},
		}
		assert.True(t, cfg.Validate().HasErrors())
	})
}

func TestBuildRegistry(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
database:
  dsn: postgres://localhost/app
entities:
  - name: posts
    table: posts
    filterable: [status, created_at, author_id]
    sortable: [created_at, id]
    selectable: [id, title, status, created_at]
    default_sort: "-created_at"
    relationships:
      - name: author
        kind: belongs_to
        table: users
      - name: comments
        kind: has_many
        table: comments
      - name: tags
        kind: belongs_to_many
        table: tags
  - name: users
    table: users
    filterable: [name, email]
    sortable: [name]
    selectable: [id, name, email]
`))
	require.NoError(t, err)

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)

	posts, ok := registry.Get("posts")
	require.True(t, ok)
	assert.Equal(t, "posts", posts.Table)
	require.NotNil(t, posts.DefaultSort)
	assert.Equal(t, "created_at", posts.DefaultSort.Field)

	author, ok := posts.Relationship("author")
	require.True(t, ok)
	assert.Equal(t, relation.BelongsTo, author.Kind)
	assert.Equal(t, "user_id", author.ForeignKey)
	assert.Equal(t, "id", author.LocalKey)

	comments, ok := posts.Relationship("comments")
	require.True(t, ok)
	assert.Equal(t, relation.HasMany, comments.Kind)
	assert.Equal(t, "post_id", comments.ForeignKey)

	tags, ok := posts.Relationship("tags")
	require.True(t, ok)
	require.NotNil(t, tags.Pivot)
	assert.Equal(t, "post_tag", tags.Pivot.Table)
	assert.Equal(t, "post_id", tags.Pivot.LocalKey)
	assert.Equal(t, "tag_id", tags.Pivot.ForeignKey)
}

func TestBuildRegistryMorphDefaults(t *testing.T) {
	cfg := &Config{Entities: []EntityConfig{
		{Name: "posts", Table: "posts", Selectable: []string{"id"}, Relationships: []RelationshipConfig{
			{
				Name: "images", Kind: "morph_many", Table: "images",
				MorphTypeColumn: "imageable_type",
				MorphIDColumn:   "imageable_id",
				MorphTypeValue:  "posts",
			},
		}},
	}}

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)

	posts, _ := registry.Get("posts")
	images, ok := posts.Relationship("images")
	require.True(t, ok)
	require.NotNil(t, images.Morph)
	assert.Equal(t, "imageable_type", images.Morph.TypeColumn)

	cfg.Entities[0].Relationships[0].MorphTypeValue = ""
	_, err = cfg.BuildRegistry()
	require.Error(t, err)
}

func TestReadSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(path, []byte("postgres://localhost/app\n"), 0o600))

	dsn, err := readSecretFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", dsn)

	_, err = readSecretFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
