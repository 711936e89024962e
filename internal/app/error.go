package app

import "errors"

var ErrUnknownFeedSource = errors.New("unknown feed source")
