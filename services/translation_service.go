package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

type ITranslationService interface {
	Translate(ctx context.Context, request domain.TranslationRequest) (domain.TranslationResponse, error)
}

// TranslationService proxies the upstream translator with a cache in front of it.
// It is independent from the presence core.
type TranslationService struct {
	log        *slog.Logger
	validate   *validator.Validate
	translator contract.ITranslator
	cache      contract.ITranslationCache
}

func NewTranslationService(log *slog.Logger, translator contract.ITranslator, cache contract.ITranslationCache) *TranslationService {
	return &TranslationService{
		log:        log,
		validate:   validator.New(),
		translator: translator,
		cache:      cache,
	}
}

func (s *TranslationService) Translate(ctx context.Context, request domain.TranslationRequest) (domain.TranslationResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return domain.TranslationResponse{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}

	tag, err := language.Parse(request.TargetLanguage)
	if err != nil {
		return domain.TranslationResponse{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, request.TargetLanguage)
	}
	// Regional and script variants are translated and cached apart from each other
	target := tag.String()

	// Nothing to do when the text is already written in the target language
	base, _ := tag.Base()
	info := whatlanggo.Detect(request.Text)
	if info.IsReliable() && info.Lang.Iso6391() == base.String() {
		s.log.Debug("Text already in target language", "language", target)
		return domain.TranslationResponse{TranslatedText: request.Text}, nil
	}

	cached, err := s.cache.Get(target, request.Text)
	switch {
	case err == nil:
		return domain.TranslationResponse{TranslatedText: cached}, nil
	case !errors.Is(err, apperrors.ErrCacheMiss):
		s.log.Warn("Translation cache unavailable", "error", err)
	}

	translated, err := s.translator.Translate(ctx, request.Text, target)
	if err != nil {
		return domain.TranslationResponse{}, err
	}
	if err := s.cache.Put(target, request.Text, translated); err != nil {
		s.log.Warn("Translation not cached", "error", err)
	}
	return domain.TranslationResponse{TranslatedText: translated}, nil
}
