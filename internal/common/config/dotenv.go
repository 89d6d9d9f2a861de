package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotenvIfPresent: 작업 디렉터리의 .env 파일을 로드합니다.
// 파일이 없는 경우는 에러가 아니다. (프로덕션 배포는 실제 환경 변수를 사용)
func LoadDotenvIfPresent() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env failed: %w", err)
	}
	return nil
}
