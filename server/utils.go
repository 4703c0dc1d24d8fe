// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package server

import (
	"fmt"
	"net/url"
	"strconv"
)

// Helper functions for parsing query parameters

func getStringParam(query url.Values, key string, defaultValue string) string {
	if values, ok := query[key]; ok && len(values) > 0 {
		return values[0]
	}
	return defaultValue
}

// getIntParam returns defaultValue when key is absent and an error when it
// is present but not an integer
func getIntParam(query url.Values, key string, defaultValue int) (int, error) {
	values, ok := query[key]
	if !ok || len(values) == 0 {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, values[0])
	}
	return val, nil
}

// getIntRangeParam is getIntParam restricted to [lo, hi]
func getIntRangeParam(query url.Values, key string, defaultValue, lo, hi int) (int, error) {
	val, err := getIntParam(query, key, defaultValue)
	if err != nil {
		return 0, err
	}
	if val < lo || val > hi {
		return 0, fmt.Errorf("%s: %d is not between %d and %d", key, val, lo, hi)
	}
	return val, nil
}

func getBoolParam(query url.Values, key string, defaultValue bool) bool {
	if values, ok := query[key]; ok && len(values) > 0 {
		if val, err := strconv.ParseBool(values[0]); err == nil {
			return val
		}
	}
	return defaultValue
}
