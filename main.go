// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package main is the datadog-mping command line
package main

import (
	"github.com/DataDog/datadog-mping/cmd"
)

func main() {
	cmd.Execute()
}
