package storage

import (
	"chat-presence/contract"
	apperrors "chat-presence/errors"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ contract.ITranslationCache = (*TranslationRepository)(nil)

// KeyPrefix starts every translation key.
const KeyPrefix = "tr:"

const (
	translatedTextField = "translated_text"
	targetLanguageField = "target_language"
	cachedAtField       = "cached_at"
)

// TranslationRepository caches upstream translations in BadgerDB.
// Entries expire on their own after the configured TTL.
type TranslationRepository struct {
	db  *badger.DB
	log *slog.Logger
	ttl time.Duration
}

func NewTranslationRepository(db *badger.DB, log *slog.Logger, ttl time.Duration) *TranslationRepository {
	return &TranslationRepository{db: db, log: log, ttl: ttl}
}

// Get returns the cached translation or ErrCacheMiss.
func (r TranslationRepository) Get(targetLanguage, text string) (string, error) {
	var translated string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(translationKey(targetLanguage, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err := DecodeEntry(val)
			if err != nil {
				return err
			}
			translated = entry.TranslatedText
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", apperrors.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return translated, nil
}

// Put stores a translation with the repository TTL.
func (r TranslationRepository) Put(targetLanguage, text, translated string) error {
	value, err := structpb.NewStruct(map[string]any{
		translatedTextField: translated,
		targetLanguageField: targetLanguage,
		cachedAtField:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	data, err := proto.Marshal(value)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(translationKey(targetLanguage, text), data).WithTTL(r.ttl)
		return txn.SetEntry(entry)
	})
}

// TranslationEntry is a cached value as stored in BadgerDB.
type TranslationEntry struct {
	TranslatedText string
	TargetLanguage string
	CachedAt       string
}

func DecodeEntry(val []byte) (TranslationEntry, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(val, &value); err != nil {
		return TranslationEntry{}, err
	}
	fields := value.GetFields()
	text, ok := fields[translatedTextField]
	if !ok {
		return TranslationEntry{}, fmt.Errorf("%s missing", translatedTextField)
	}
	return TranslationEntry{
		TranslatedText: text.GetStringValue(),
		TargetLanguage: fields[targetLanguageField].GetStringValue(),
		CachedAt:       fields[cachedAtField].GetStringValue(),
	}, nil
}

// translationKey hashes the text so that keys stay short whatever its length.
func translationKey(targetLanguage, text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte(fmt.Sprintf("%s%s:%s", KeyPrefix, targetLanguage, hex.EncodeToString(sum[:])))
}
