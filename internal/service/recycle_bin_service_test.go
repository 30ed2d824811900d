package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/storage"
)

func TestRecycleBinArchiveListRestore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	events, unsubscribe := env.bus.Subscribe(event.TypeRecordArchived, event.TypeRecordRestored)
	defer unsubscribe()

	skill, err := env.skills.Create(ctx, model.SkillRequest{Name: "Go", Level: 90})
	require.NoError(t, err)

	require.NoError(t, env.skills.Delete(ctx, skill.ID))
	archived := <-events
	assert.Equal(t, event.TypeRecordArchived, archived.Type)

	_, err = env.skills.Get(ctx, skill.ID)
	require.ErrorIs(t, err, model.ErrSkillNotFound)

	entries, meta, err := env.bin.List(ctx, model.RecycleBinFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, model.KindSkill, entries[0].DataType)
	assert.Equal(t, skill.ID, entries[0].DataID)

	result, err := env.bin.Restore(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindSkill, result.DataType)
	assert.Equal(t, skill.ID, result.DataID)
	assert.Equal(t, event.TypeRecordRestored, (<-events).Type)

	restored, err := env.skills.Get(ctx, skill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", restored.Name)

	entries, _, err = env.bin.List(ctx, model.RecycleBinFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecycleBinListFiltersByType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	skill, err := env.skills.Create(ctx, model.SkillRequest{Name: "SQL", Level: 50})
	require.NoError(t, err)
	contact, err := env.contacts.Create(ctx, model.ContactRequest{Type: "email", Value: "me@example.com"})
	require.NoError(t, err)

	require.NoError(t, env.skills.Delete(ctx, skill.ID))
	require.NoError(t, env.contacts.Delete(ctx, contact.ID))

	entries, meta, err := env.bin.List(ctx, model.RecycleBinFilter{DataType: model.KindContact})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, contact.ID, entries[0].DataID)
	assert.Equal(t, 1, meta.Total)

	_, _, err = env.bin.List(ctx, model.RecycleBinFilter{DataType: "widget"})
	require.ErrorIs(t, err, model.ErrUnknownDataType)
}

func TestRecycleBinPurgeMissingEntry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())

	err := env.bin.Purge(context.Background(), 4242)
	require.ErrorIs(t, err, model.ErrEntryNotFound)

	_, err = env.bin.Restore(context.Background(), 4242)
	require.ErrorIs(t, err, model.ErrEntryNotFound)
}

func TestRecycleBinPurgeRemovesArticleFiles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	cover, err := env.files.Upload(ctx, FileKindCovers, "cover.jpg", strings.NewReader("not really a jpeg"))
	require.NoError(t, err)
	pdf, err := env.files.Upload(ctx, FileKindPDFs, "paper.pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)

	article, err := env.articles.Create(ctx, model.ArticleRequest{
		Title:       "Post",
		Cover:       cover.Filename,
		ContentType: "pdf",
		PDFFilename: pdf.Filename,
	})
	require.NoError(t, err)
	require.NoError(t, env.articles.Delete(ctx, article.ID))

	coverPath, err := env.store.Resolve(cover.Filename, storage.SubdirArticleCovers)
	require.NoError(t, err)
	pdfPath, err := env.store.Resolve(pdf.Filename, storage.SubdirArticlePDFs)
	require.NoError(t, err)
	require.FileExists(t, coverPath, "files survive until the entry is purged")

	entry, err := env.entries.FindBySubject(ctx, model.KindArticle, article.ID)
	require.NoError(t, err)
	require.NoError(t, env.bin.Purge(ctx, entry.ID))

	assert.NoFileExists(t, coverPath)
	assert.NoFileExists(t, pdfPath)

	var raw model.Article
	require.NoError(t, env.db.Unscoped().First(&raw, article.ID).Error)
	assert.True(t, raw.Tombstoned(), "purge keeps the tombstoned row")
}

func TestRecycleBinPurgeIgnoresExternalCover(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	article, err := env.articles.Create(ctx, model.ArticleRequest{Title: "Linked", Cover: "https://cdn.example.com/a.png"})
	require.NoError(t, err)
	require.NoError(t, env.articles.Delete(ctx, article.ID))

	entry, err := env.entries.FindBySubject(ctx, model.KindArticle, article.ID)
	require.NoError(t, err)
	require.NoError(t, env.bin.Purge(ctx, entry.ID))
}

func TestRecycleBinClear(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		skill, err := env.skills.Create(ctx, model.SkillRequest{Name: name})
		require.NoError(t, err)
		require.NoError(t, env.skills.Delete(ctx, skill.ID))
	}

	purged, err := env.bin.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	entries, _, err := env.bin.List(ctx, model.RecycleBinFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	purged, err = env.bin.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestRecycleBinPurgeExpired(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	ages := map[string]time.Duration{
		"old":   16 * 24 * time.Hour,
		"young": 14 * 24 * time.Hour,
	}
	ids := map[string]uint{}
	for name, age := range ages {
		skill, err := env.skills.Create(ctx, model.SkillRequest{Name: name})
		require.NoError(t, err)
		require.NoError(t, env.skills.Delete(ctx, skill.ID))

		entry, err := env.entries.FindBySubject(ctx, model.KindSkill, skill.ID)
		require.NoError(t, err)
		require.NoError(t, env.db.Model(&model.RecycleBinEntry{}).
			Where("id = ?", entry.ID).
			Update("deleted_at", now.Add(-age)).Error)
		ids[name] = entry.ID
	}

	result, err := env.bin.PurgeExpired(ctx, 15, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purged)
	assert.Equal(t, now.Add(-15*24*time.Hour), result.Cutoff)

	_, err = env.entries.Get(ctx, ids["old"])
	require.ErrorIs(t, err, model.ErrEntryNotFound)

	_, err = env.entries.Get(ctx, ids["young"])
	require.NoError(t, err)
}

func TestRecycleBinPurgeExpiredRejectsBadRetention(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())

	_, err := env.bin.PurgeExpired(context.Background(), 0, time.Now())
	require.Error(t, err)
}

func TestRecycleBinPurgeAvatarRemovesImage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	avatar, err := env.avatars.Upload(ctx, "me.png", strings.NewReader(string(pngBytes(t))), "")
	require.NoError(t, err)

	path, err := env.store.Resolve(avatar.Filename, storage.SubdirAvatars)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.NoError(t, env.avatars.Delete(ctx, avatar.ID))
	entry, err := env.entries.FindBySubject(ctx, model.KindAvatar, avatar.ID)
	require.NoError(t, err)
	require.NoError(t, env.bin.Purge(ctx, entry.ID))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
