package translate

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"
)

// Resolver fetches a display name for an identifier the cache does not know.
// Implemented by the Web API client; the translator calls it at most once per
// occurrence.
type Resolver interface {
	Resolve(ctx context.Context, ns Namespace, id string) (string, error)
}

// fieldRule declares one payload field known to carry an identifier. The
// table is fixed so translation behavior stays auditable; unknown fields are
// never touched.
type fieldRule struct {
	field string
	ns    Namespace
}

var idFields = []fieldRule{
	{field: "user", ns: NamespaceUser},
	{field: "inviter", ns: NamespaceUser},
	{field: "bot_id", ns: NamespaceUser},
	{field: "channel", ns: NamespaceChannel},
}

// subObjects are the nested payload members the field table also applies to.
// "attachments" is handled separately since it is an array.
var subObjects = []string{"message", "item"}

var mentionRE = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// Translator rewrites identifier fields in decoded payloads using the cache,
// falling back to a single lazy resolution per miss.
type Translator struct {
	cache    *Cache
	resolver Resolver
	log      *zerolog.Logger
}

// New builds a translator over the given cache and resolver.
func New(cache *Cache, resolver Resolver, logger *zerolog.Logger) *Translator {
	return &Translator{cache: cache, resolver: resolver, log: logger}
}

// Translate rewrites all known identifier fields and in-text mentions in the
// payload, in place, and returns the translated mention list. Identifiers
// that cannot be resolved are left exactly as received; translation never
// fails an event.
func (t *Translator) Translate(ctx context.Context, payload map[string]any) []string {
	t.translateObject(ctx, payload)
	for _, key := range subObjects {
		if sub, ok := payload[key].(map[string]any); ok {
			t.translateObject(ctx, sub)
		}
	}
	if attachments, ok := payload["attachments"].([]any); ok {
		for _, item := range attachments {
			if sub, ok := item.(map[string]any); ok {
				t.translateObject(ctx, sub)
			}
		}
	}
	return t.translateText(ctx, payload)
}

func (t *Translator) translateObject(ctx context.Context, obj map[string]any) {
	for _, rule := range idFields {
		value, ok := obj[rule.field]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if name, ok := t.resolveName(ctx, rule.ns, v); ok {
				obj[rule.field] = name
			}
		case map[string]any:
			// Some events (channel_created and friends) carry the channel
			// object itself rather than an id.
			if name, ok := v["name"].(string); ok && rule.ns == NamespaceChannel {
				obj[rule.field] = name
			}
		}
	}
}

// translateText rewrites <@ID> mentions inside the text field and returns the
// mention list, translated where possible.
func (t *Translator) translateText(ctx context.Context, payload map[string]any) []string {
	text, ok := payload["text"].(string)
	if !ok || text == "" {
		return nil
	}

	var mentions []string
	rewritten := mentionRE.ReplaceAllStringFunc(text, func(match string) string {
		id := mentionRE.FindStringSubmatch(match)[1]
		name, ok := t.resolveName(ctx, NamespaceUser, id)
		if !ok {
			mentions = append(mentions, id)
			return match
		}
		mentions = append(mentions, name)
		return "@" + name
	})

	payload["text"] = rewritten
	return mentions
}

// resolveName consults the cache and, on a miss, attempts exactly one lazy
// resolution against the backend. A failed resolution is logged at debug and
// reported as a miss.
func (t *Translator) resolveName(ctx context.Context, ns Namespace, id string) (string, bool) {
	if name, ok := t.cache.Lookup(ns, id); ok {
		return name, true
	}
	if t.resolver == nil {
		return "", false
	}
	name, err := t.resolver.Resolve(ctx, ns, id)
	if err != nil {
		t.log.Debug().Err(err).Str("namespace", string(ns)).Str("id", id).Msg("identifier left untranslated")
		return "", false
	}
	t.cache.Remember(ns, id, name)
	return name, true
}

// ExtractMentions returns the raw <@ID> references from the payload's text
// field. Used when translation is disabled so events still expose mentions.
func ExtractMentions(payload map[string]any) []string {
	text, ok := payload["text"].(string)
	if !ok || text == "" {
		return nil
	}
	var mentions []string
	for _, match := range mentionRE.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, match[1])
	}
	return mentions
}
