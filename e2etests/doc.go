// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package e2etests contains end-to-end tests for datadog-mping. Tests run the
// engine on a real raw ICMP socket, both as a library inside a private
// network namespace and through the CLI and HTTP server binaries. They need
// root (or CAP_NET_RAW) and the e2etest build tag.
package e2etests
