package subscriptions

import (
	"context"
	"fmt"
	"iter"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/tweetcast/internal/domain/model"
)

// StaticSource serves a fixed subscription set loaded from a YAML file in
// place of the store. Used for dry runs against sample data.
type StaticSource struct {
	subs []model.Subscription
}

type staticFile struct {
	Subscriptions []model.Subscription `koanf:"subscriptions"`
}

// LoadStatic reads and validates the subscriptions listed in path.
//
//	subscriptions:
//	  - id: sample-1
//	    type: discord
//	    topics: [Crypto]
//	    url: https://discord.com/api/webhooks/...
func LoadStatic(path string) (*StaticSource, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load sample subscriptions %s: %w", path, err)
	}
	var raw staticFile
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("decode sample subscriptions %s: %w", path, err)
	}
	return NewStatic(raw.Subscriptions)
}

// NewStatic validates subs the way Create does.
func NewStatic(subs []model.Subscription) (*StaticSource, error) {
	out := make([]model.Subscription, 0, len(subs))
	for i, s := range subs {
		kind, err := model.ParseChannelType(string(s.Type))
		if err != nil {
			return nil, fmt.Errorf("sample subscription %d: %w", i, err)
		}
		sub := model.Subscription{ID: s.ID, Type: kind, Topics: model.NormalizeTopics(s.Topics)}
		target := s.URL
		if kind == model.ChannelEmail {
			target = s.Email
		}
		if err := sub.SetTarget(target); err != nil {
			return nil, fmt.Errorf("sample subscription %d: %w", i, err)
		}
		if sub.ID == "" {
			sub.ID = fmt.Sprintf("sample-%d", i+1)
		}
		out = append(out, sub)
	}
	return &StaticSource{subs: out}, nil
}

// Subscriptions yields the static set filtered by kinds.
func (s *StaticSource) Subscriptions(_ context.Context, kinds ...model.ChannelType) iter.Seq2[model.Subscription, error] {
	keep := ofKinds(kinds)
	return func(yield func(model.Subscription, error) bool) {
		for _, sub := range s.subs {
			if keep(sub) && !yield(sub, nil) {
				return
			}
		}
	}
}
