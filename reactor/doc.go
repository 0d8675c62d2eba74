// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness poller and the socket manager that
// drives api.ManagedSocket dispatch and teardown from a single goroutine.
package reactor
