package memory

import "errors"

var errInjected = errors.New("memory store: injected write failure")
