package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/BaSui01/uniconnect/types"
)

// envLookup 与 os.LookupEnv 同签名
type envLookup func(string) (string, bool)

// loadDotEnv 读取 .env 文件；文件不存在时返回 nil
func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

// layeredEnv 先查进程环境，再依次查 .env 中的值
func layeredEnv(primary envLookup, files ...map[string]string) envLookup {
	return func(key string) (string, bool) {
		if primary != nil {
			if v, ok := primary(key); ok {
				return v, true
			}
		}
		for _, m := range files {
			if v, ok := m[key]; ok {
				return v, true
			}
		}
		return "", false
	}
}

// providerEnvKey 返回 {PROVIDER}_API_KEY，非字母数字字符替换为下划线
func providerEnvKey(provider string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(provider) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String() + "_API_KEY"
}

// resolveCredential 按 参数 → {PROVIDER}_API_KEY → API_KEY 的顺序查找凭据
func resolveCredential(explicit, provider string, lookup envLookup) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	key := providerEnvKey(provider)
	for _, name := range []string{key, "API_KEY"} {
		if v, ok := lookup(name); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: pass --credential or set %s or API_KEY", types.ErrMissingCredential, key)
}
