package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
	"go-portfolio-cms/internal/storage"
)

func uploadAvatar(t *testing.T, env testEnv, name string) model.Avatar {
	t.Helper()

	avatar, err := env.avatars.Upload(context.Background(), name, bytes.NewReader(pngBytes(t)), `{"x":0}`)
	require.NoError(t, err)
	return avatar
}

func countCurrent(t *testing.T, env testEnv) int64 {
	t.Helper()

	count, err := repository.NewAvatarRepository(env.db).CountCurrent(context.Background())
	require.NoError(t, err)
	return count
}

func TestAvatarUploadBecomesCurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	first := uploadAvatar(t, env, "first.png")
	assert.True(t, first.IsCurrent)
	assert.True(t, strings.HasSuffix(first.Filename, ".jpg"), "png uploads are normalized")

	path, err := env.store.Resolve(first.Filename, storage.SubdirAvatars)
	require.NoError(t, err)
	assert.FileExists(t, path)

	second := uploadAvatar(t, env, "second.png")

	current, err := env.avatars.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.EqualValues(t, 1, countCurrent(t, env))

	avatars, err := env.avatars.List(ctx)
	require.NoError(t, err)
	assert.Len(t, avatars, 2)
}

func TestAvatarUploadRejectsDisallowedType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())

	_, err := env.avatars.Upload(context.Background(), "script.svg", strings.NewReader("<svg/>"), "")
	require.Error(t, err)

	avatars, err := env.avatars.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, avatars)
}

func TestAvatarSetCurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	first := uploadAvatar(t, env, "a.png")
	uploadAvatar(t, env, "b.png")

	updated, err := env.avatars.SetCurrent(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsCurrent)

	current, err := env.avatars.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
	assert.EqualValues(t, 1, countCurrent(t, env))

	_, err = env.avatars.SetCurrent(ctx, 9999)
	require.ErrorIs(t, err, model.ErrAvatarNotFound)
	assert.EqualValues(t, 1, countCurrent(t, env), "failed toggle rolls back")
}

func TestAvatarConcurrentSetCurrentKeepsOneCurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	ids := make([]uint, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, uploadAvatar(t, env, "x.png").ID)
	}

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				_, err := env.avatars.SetCurrent(ctx, id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.EqualValues(t, 1, countCurrent(t, env))
}

func TestAvatarDeleteAndRestoreIsNotCurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, defaultLimit())
	ctx := context.Background()

	avatar := uploadAvatar(t, env, "me.png")
	require.NoError(t, env.avatars.Delete(ctx, avatar.ID))

	_, err := env.avatars.Current(ctx)
	require.ErrorIs(t, err, model.ErrAvatarNotFound)

	entry, err := env.entries.FindBySubject(ctx, model.KindAvatar, avatar.ID)
	require.NoError(t, err)
	_, err = env.bin.Restore(ctx, entry.ID)
	require.NoError(t, err)

	avatars, err := env.avatars.List(ctx)
	require.NoError(t, err)
	require.Len(t, avatars, 1)
	assert.False(t, avatars[0].IsCurrent)
	assert.Zero(t, countCurrent(t, env))
}
