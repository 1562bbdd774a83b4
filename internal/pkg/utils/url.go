package utils

import (
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ParseURL parses url and checks it is not empty
func ParseURL(str string) (*url.URL, error) {
	u, err := url.Parse(str)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("can't parse url")
	}
	return u, nil
}

// HidePass removes pass from URL
func HidePass(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		log.Warn().Msg("Can't parse url")
		return ""
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "----")
	}
	return u.String()
}
