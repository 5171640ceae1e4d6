package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeResolver struct {
	targets map[string]string
	fail    map[string]bool
}

func (f *fakeResolver) Resolve(_ context.Context, link string) (string, error) {
	if f.fail[link] {
		return "", errors.New("connection refused")
	}
	return f.targets[link], nil
}

func TestUnshortenAll(t *testing.T) {
	resolver := &fakeResolver{
		targets: map[string]string{
			"https://sho.rt/a": "https://real.example/article",
			// sho.rt/b 无跳转
		},
		fail: map[string]bool{
			"https://dead.example": true,
		},
	}

	got, err := unshortenAll(context.Background(), resolver, []string{
		"https://sho.rt/a",
		"https://sho.rt/b",
		"https://dead.example",
	})
	if err != nil {
		t.Fatalf("unshortenAll error: %v", err)
	}

	want := []string{
		"https://real.example/article", // Location 头的值
		"https://sho.rt/b",             // 无跳转保留原链接
		"",                             // 单条失败降级为空串占位
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unshortenAll = %v, want %v", got, want)
	}

	// 占位随后被校验阶段剔除
	valid := removeInvalid(got)
	if len(valid) != 2 {
		t.Fatalf("removeInvalid kept %d, want 2", len(valid))
	}
}
