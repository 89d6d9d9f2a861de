package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StringFromEnv: 환경 변수에서 문자열 값을 읽어옵니다. 없거나 공백이면 기본값을 반환합니다.
func StringFromEnv(key string, defaultValue string) string {
	rawValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return defaultValue
	}
	return rawValue
}

// IntFromEnv: 환경 변수에서 정수 값을 읽어옵니다.
func IntFromEnv(key string, defaultValue int) (int, error) {
	rawValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(rawValue)
	if err != nil {
		return 0, fmt.Errorf("invalid int env %s=%q: %w", key, rawValue, err)
	}
	return value, nil
}

// Int64FromEnv: 환경 변수에서 64비트 정수 값을 읽어옵니다.
func Int64FromEnv(key string, defaultValue int64) (int64, error) {
	rawValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseInt(rawValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 env %s=%q: %w", key, rawValue, err)
	}
	return value, nil
}

// Float64FromEnv: 환경 변수에서 64비트 실수 값을 읽어옵니다.
func Float64FromEnv(key string, defaultValue float64) (float64, error) {
	rawValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float64 env %s=%q: %w", key, rawValue, err)
	}
	return value, nil
}

// BoolFromEnv: 환경 변수에서 불리언 값을 읽어옵니다. (true/1/yes/y, false/0/no/n)
func BoolFromEnv(key string, defaultValue bool) (bool, error) {
	rawValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return defaultValue, nil
	}

	switch strings.ToLower(rawValue) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool env %s=%q", key, rawValue)
	}
}

// DurationSecondsFromEnv: 환경 변수에서 초 단위 시간을 읽어 Duration으로 변환합니다.
func DurationSecondsFromEnv(key string, defaultSeconds int64) (time.Duration, error) {
	valueSeconds, err := Int64FromEnv(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	if valueSeconds < 0 {
		return 0, fmt.Errorf("invalid duration seconds env %s=%d", key, valueSeconds)
	}
	return time.Duration(valueSeconds) * time.Second, nil
}

// DurationHoursFromEnv: 환경 변수에서 시간(hour) 단위 시간을 읽어 Duration으로 변환합니다.
func DurationHoursFromEnv(key string, defaultHours int64) (time.Duration, error) {
	valueHours, err := Int64FromEnv(key, defaultHours)
	if err != nil {
		return 0, err
	}
	if valueHours < 0 {
		return 0, fmt.Errorf("invalid duration hours env %s=%d", key, valueHours)
	}
	return time.Duration(valueHours) * time.Hour, nil
}

// StringSliceFromEnv: 환경 변수에서 쉼표로 구분된 문자열 목록을 읽어옵니다.
func StringSliceFromEnv(key string) []string {
	rawValue := strings.TrimSpace(os.Getenv(key))
	if rawValue == "" {
		return nil
	}
	parts := strings.Split(rawValue, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
