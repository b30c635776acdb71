package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// AddAuthorRequest describes an author to add to the library.
type AddAuthorRequest struct {
	ForeignAuthorID   string   `json:"foreign_author_id" validate:"required"`
	RootFolder        string   `json:"root_folder" validate:"required"`
	Monitored         bool     `json:"monitored"`
	QualityProfileID  int64    `json:"quality_profile_id"`
	MetadataProfileID int64    `json:"metadata_profile_id"`
	Tags              []string `json:"tags,omitempty"`
}

// AddAuthorResult pairs one request with its outcome, so bulk adds report
// per-item failures instead of aborting the whole batch.
type AddAuthorResult struct {
	ForeignAuthorID string         `json:"foreign_author_id"`
	Author          *domain.Author `json:"author,omitempty"`
	Err             error          `json:"-"`
}

// AddAuthorService adds authors to the library by catalog id, fetching their
// metadata from the catalog up front.
type AddAuthorService struct {
	store     *store.Store
	provider  bookinfo.Provider
	validator *validation.Validator
	logger    *logger.Logger
}

// NewAddAuthorService creates a new add-author service.
func NewAddAuthorService(store *store.Store, provider bookinfo.Provider, logger *logger.Logger) *AddAuthorService {
	return &AddAuthorService{
		store:     store,
		provider:  provider,
		validator: validation.New(),
		logger:    logger,
	}
}

// AddAuthor validates the request, fetches catalog metadata and inserts the
// library row. The books themselves arrive with the first refresh.
func (s *AddAuthorService) AddAuthor(ctx context.Context, req AddAuthorRequest) (*domain.Author, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	existing, err := s.store.FindAuthorByForeignID(ctx, req.ForeignAuthorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.AlreadyExists("author already in library").
			WithDetails(errors.FieldError{Field: "foreign_author_id", Value: req.ForeignAuthorID})
	}

	remote, metadata, err := s.provider.GetAuthorInfo(ctx, req.ForeignAuthorID)
	if err != nil {
		if errors.Is(err, bookinfo.ErrNotFound) || errors.Is(err, bookinfo.ErrInvalidID) {
			return nil, errors.Validation("unknown catalog id", "foreign_author_id", req.ForeignAuthorID)
		}
		return nil, errors.Internal("fetching author from catalog", err)
	}

	if _, err := s.store.UpsertAuthorMetadata(ctx, metadata); err != nil {
		return nil, err
	}
	stored, err := s.store.FindAuthorMetadataByForeignID(ctx, req.ForeignAuthorID)
	if err != nil {
		return nil, err
	}

	author := &domain.Author{
		MetadataID:        stored.ID,
		Path:              filepath.Join(req.RootFolder, pathSafeName(stored.Name)),
		Monitored:         req.Monitored,
		QualityProfileID:  req.QualityProfileID,
		MetadataProfileID: req.MetadataProfileID,
		Tags:              req.Tags,
		Added:             time.Now(),
		Metadata:          *stored,
		Series:            remote.Series,
	}
	if err := s.store.InsertAuthor(ctx, author); err != nil {
		return nil, err
	}

	s.logger.Info("author added", "name", stored.Name, "foreignID", req.ForeignAuthorID)
	return author, nil
}

// AddAuthors adds many authors, isolating failures per item.
func (s *AddAuthorService) AddAuthors(ctx context.Context, reqs []AddAuthorRequest) []AddAuthorResult {
	results := make([]AddAuthorResult, 0, len(reqs))
	for _, req := range reqs {
		author, err := s.AddAuthor(ctx, req)
		if err != nil {
			s.logger.WithError(err).Warn("failed to add author", "foreignID", req.ForeignAuthorID)
		}
		results = append(results, AddAuthorResult{
			ForeignAuthorID: req.ForeignAuthorID,
			Author:          author,
			Err:             err,
		})
	}
	return results
}

// pathSafeName strips path separators from a name used as a folder segment.
func pathSafeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
