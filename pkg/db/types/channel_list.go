package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// ChannelList stores a campaign's allowed channels as a Postgres text array.
type ChannelList []enums.Channel

func (l *ChannelList) Scan(src any) error {
	if src == nil {
		*l = ChannelList{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return l.parseFromString(v)
	case []byte:
		return l.parseFromString(string(v))
	default:
		return fmt.Errorf("ChannelList: unsupported Scan type %T", src)
	}
}

func (l ChannelList) Value() (driver.Value, error) {
	// Postgres array literal: {voice,sms}
	if len(l) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(l))
	for _, ch := range l {
		parts = append(parts, string(ch))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether the list allows the given channel.
func (l ChannelList) Contains(ch enums.Channel) bool {
	for _, candidate := range l {
		if candidate == ch {
			return true
		}
	}
	return false
}

func (l *ChannelList) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "{}" || s == "" {
		*l = ChannelList{}
		return nil
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*l = ChannelList{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]enums.Channel, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(strings.Trim(r, `"`))
		ch, err := enums.ParseChannel(r)
		if err != nil {
			return fmt.Errorf("ChannelList: %w", err)
		}
		out = append(out, ch)
	}
	*l = out
	return nil
}
