package notify

import "errors"

var ErrEmptyCommand = errors.New("notify command is empty")
