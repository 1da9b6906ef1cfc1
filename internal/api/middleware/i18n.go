package middleware

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

const (
	contextKeyLanguage   = "language"
	contextKeyTranslator = "translator"
	sessionKeyLanguage   = "language"
)

// I18nConfig definiert die Konfiguration für die i18n-Middleware
type I18nConfig struct {
	DefaultLanguage string
	LocalesDir      string // optional, Dateien überschreiben die eingebetteten
}

// Translator hält die Übersetzungsfunktionalität
type Translator struct {
	bundle          *i18n.Bundle
	matcher         language.Matcher
	tags            []language.Tag
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
	mu              sync.RWMutex
}

// NewTranslator lädt die eingebetteten und optional externe Übersetzungsdateien
func NewTranslator(config I18nConfig) (*Translator, error) {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "en"
	}
	defaultTag, err := language.Parse(config.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", config.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, entry.Name()); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", entry.Name(), err)
		}
	}

	if config.LocalesDir != "" {
		files, err := os.ReadDir(config.LocalesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read locales directory: %w", err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			if _, err := bundle.LoadMessageFile(filepath.Join(config.LocalesDir, file.Name())); err != nil {
				return nil, fmt.Errorf("failed to load locale %s: %w", file.Name(), err)
			}
		}
	}

	// Die Standardsprache steht vorne, damit der Matcher auf sie zurückfällt
	tags := []language.Tag{defaultTag}
	for _, tag := range bundle.LanguageTags() {
		if tag != defaultTag {
			tags = append(tags, tag)
		}
	}

	return &Translator{
		bundle:          bundle,
		matcher:         language.NewMatcher(tags),
		tags:            tags,
		defaultLanguage: defaultTag.String(),
		localizers:      make(map[string]*i18n.Localizer),
	}, nil
}

// Languages gibt die unterstützten Sprachen zurück
func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.tags))
	for _, tag := range t.tags {
		langs = append(langs, tag.String())
	}
	return langs
}

// Match wählt die beste unterstützte Sprache für die gewünschten Sprachen
func (t *Translator) Match(preferred ...string) string {
	var wanted []language.Tag
	for _, p := range preferred {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return t.defaultLanguage
	}
	_, idx, confidence := t.matcher.Match(wanted...)
	if confidence == language.No {
		return t.defaultLanguage
	}
	return t.tags[idx].String()
}

func (t *Translator) localizer(lang string) *i18n.Localizer {
	t.mu.RLock()
	l, ok := t.localizers[lang]
	t.mu.RUnlock()
	if ok {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	l = i18n.NewLocalizer(t.bundle, lang, t.defaultLanguage)
	t.localizers[lang] = l
	return l
}

// Translate übersetzt eine Nachricht; unbekannte IDs werden unverändert zurückgegeben
func (t *Translator) Translate(lang, messageID string, data map[string]interface{}) string {
	msg, err := t.localizer(lang).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		log.Debugf("Missing translation for %s (%s): %v", messageID, lang, err)
		return messageID
	}
	return msg
}

var (
	fallbackOnce       sync.Once
	fallbackTranslator *Translator
)

// defaultTranslator wird verwendet, wenn keine Middleware aktiv ist
func defaultTranslator() *Translator {
	fallbackOnce.Do(func() {
		t, err := NewTranslator(I18nConfig{DefaultLanguage: "en"})
		if err != nil {
			log.Errorf("Failed to initialize default translator: %v", err)
			return
		}
		fallbackTranslator = t
	})
	return fallbackTranslator
}

// I18n erstellt eine Middleware für die Internationalisierung. Die Sprache
// kommt aus ?lang, der Session oder dem Accept-Language-Header.
func I18n(translator *Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := ""
		requested := c.Query("lang")

		var session sessions.Session
		if _, ok := c.Get(sessions.DefaultKey); ok {
			session = sessions.Default(c)
		}

		if requested != "" {
			lang = translator.Match(requested)
			if session != nil {
				session.Set(sessionKeyLanguage, lang)
				if err := session.Save(); err != nil {
					log.Debugf("Failed to save language in session: %v", err)
				}
			}
		} else if session != nil {
			if stored, ok := session.Get(sessionKeyLanguage).(string); ok && stored != "" {
				lang = stored
			}
		}

		if lang == "" {
			lang = translator.Match(c.GetHeader("Accept-Language"))
		}

		c.Set(contextKeyLanguage, lang)
		c.Set(contextKeyTranslator, translator)
		c.Next()
	}
}

// T übersetzt messageID in der Sprache der aktuellen Anfrage
func T(c *gin.Context, messageID string, data ...map[string]interface{}) string {
	var templateData map[string]interface{}
	if len(data) > 0 {
		templateData = data[0]
	}

	var translator *Translator
	if v, ok := c.Get(contextKeyTranslator); ok {
		translator, _ = v.(*Translator)
	}
	lang := c.GetString(contextKeyLanguage)
	if translator == nil {
		translator = defaultTranslator()
		if translator == nil {
			return messageID
		}
	}
	if lang == "" {
		lang = translator.defaultLanguage
	}
	return translator.Translate(lang, messageID, templateData)
}
