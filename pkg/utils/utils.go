package utils

import (
	"math/rand"
	"os"
	"time"
)

// RandStr product random string
func RandStr(length int) string {
	str := "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	bytes := []byte(str)
	result := []byte{}
	rand.Seed(time.Now().UnixNano() + int64(rand.Intn(100)))
	for i := 0; i < length; i++ {
		result = append(result, bytes[rand.Intn(len(bytes))])
	}
	return string(result)
}

func TimestampS() int64 {
	return time.Now().Unix()
}

func TimestampMS() int64 {
	return time.Now().UnixNano() / 1e6
}

func String(s string) *string {
	return &s
}

func Int64(v int64) *int64 {
	return &v
}

func Bool(v bool) *bool {
	return &v
}

// FileExists check file exist
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}
		return false
	}
	return true
}

// EnsureDir create dir when missing
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
