package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-portfolio-cms/internal/config"
	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/imaging"
	"go-portfolio-cms/internal/lifecycle"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
	"go-portfolio-cms/internal/storage"
	"go-portfolio-cms/internal/testutil"
)

type testEnv struct {
	db       *gorm.DB
	store    *storage.Store
	bus      *event.InMemoryBus
	entries  *repository.RecycleBinRepository
	bin      *RecycleBinService
	files    *FileService
	avatars  *AvatarService
	articles *ArticleService
	skills   *SkillService
	contacts *ContactService
	comments *CommentService
	limiter  *CommentRateLimiter
}

func newTestEnv(t *testing.T, limit config.CommentLimitConfig) testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	bus := event.NewBus()
	files := NewFileService(store, imaging.NewNormalizer(85, 0, 0), FileServiceConfig{
		ImageExtensions: []string{"jpg", "jpeg", "png", "gif"},
		PDFExtensions:   []string{"pdf"},
		MaxBytes:        1 << 20,
	}, bus, nil)

	entries := repository.NewRecycleBinRepository(db)
	manager := lifecycle.NewManager(db, entries, lifecycle.Options{}, LifecycleKinds(files)...)
	bin := NewRecycleBinService(manager, entries, bus, nil)

	articleRepo := repository.NewContentRepository[model.Article](db, model.ErrArticleNotFound, "created_at DESC, id DESC")
	commentRepo := repository.NewCommentRepository(db)
	limiter := NewCommentRateLimiter(limit, commentRepo, nil)

	return testEnv{
		db:       db,
		store:    store,
		bus:      bus,
		entries:  entries,
		bin:      bin,
		files:    files,
		avatars:  NewAvatarService(db, repository.NewAvatarRepository(db), files, bin, bus),
		articles: NewArticleService(articleRepo, bin, bus),
		skills:   NewSkillService(repository.NewContentRepository[model.Skill](db, model.ErrSkillNotFound, ""), bin, bus),
		contacts: NewContactService(repository.NewContentRepository[model.Contact](db, model.ErrContactNotFound, ""), bin, bus),
		comments: NewCommentService(commentRepo, articleRepo, limiter, bus),
		limiter:  limiter,
	}
}

func defaultLimit() config.CommentLimitConfig {
	return config.CommentLimitConfig{Enabled: true, WindowHours: 24, MaxComments: 3, ExemptAdmin: true}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 30), G: 90, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
