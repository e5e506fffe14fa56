package translation

import (
	"strings"
	"testing"
)

func TestValidatorExamples(t *testing.T) {
	v := NewValidator("English")

	ok, out := v.Validate("Hi", "```Hello```")
	if !ok || out != "Hello" {
		t.Fatalf("code fence: got %v %q", ok, out)
	}

	ok, _ = v.Validate("Hi", "This is a long unrelated explanatory sentence about translation that exceeds the limit")
	if ok {
		t.Fatal("long reply to a short source must be rejected")
	}

	ok, out = v.Validate("The weather is nice today.", "今天天气很好")
	if !ok || out != "今天天气很好" {
		t.Fatalf("plain translation: got %v %q", ok, out)
	}
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator("Simplified Chinese")
	source := "Machine learning models need a lot of data to work well in practice."

	tests := []struct {
		name       string
		source     string
		candidate  string
		accepted   bool
		wantResult string
	}{
		{"curly quotes", "Hi", "“你好”", true, "你好"},
		{"straight quotes", "Hi", `"你好"`, true, "你好"},
		{"label with curly quote", source, "翻译：“机器学习需要数据。”多余的解释", true, "机器学习需要数据。"},
		{"label with colon space", source, `Translation: "机器学习需要大量数据"`, true, "机器学习需要大量数据"},
		{"label takes last segment", source, `译文:"旧的" 译文:"新的"`, true, "新的"},
		{"short source long reply", "Thanks", "非常感谢你的帮助，我真的很感激你所做的一切", false, correctiveOnly},
		{"too long", "Good morning everyone", "各位早上好，今天我们来聊一个非常重要的话题", false, correctiveTooLong},
		{"forbidden token", source, "这句话说机器学习需要数据", false, "Don't include `这句` in the translation. " + correctiveOnly},
		{"forbidden newline", source, "机器学习\n需要数据", false, "Don't include `\n` in the translation. " + correctiveOnly},
		{"empty wrapper", "Hi", `""`, false, correctiveEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, result := v.Validate(tt.source, tt.candidate)
			if ok != tt.accepted {
				t.Fatalf("accepted = %v, want %v (result %q)", ok, tt.accepted, result)
			}
			if result != tt.wantResult {
				t.Fatalf("result = %q, want %q", result, tt.wantResult)
			}
		})
	}
}

func TestValidatorForbidsTargetLanguageName(t *testing.T) {
	v := NewValidator("German")
	ok, result := v.Validate("It is a long sentence about the weather today.", "Auf German: Wetter")
	if ok {
		t.Fatal("reply naming the target language must be rejected")
	}
	if !strings.Contains(result, "`German`") {
		t.Fatalf("unexpected corrective %q", result)
	}
	found := false
	for _, word := range v.Forbidden() {
		if word == "Deutsch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("native name missing from forbidden list %v", v.Forbidden())
	}
}

func TestPostprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"模型（一种算法）很好", "模型很好"},
		{"model (an algorithm) works", "model  works"},
		{"等等...然后", "等等，然后"},
		{"1,000,000 users, maybe", "1000000 users, maybe"},
		{"x²", "xsquared"},
		{"注意————这里", "注意:这里"},
		{"注意——这里", "注意:这里"},
		{"30°", "30degrees"},
		{"AI is here, SAID nobody", "artificial intelligence is here, SAID nobody"},
		{"变压器模型", "Transformer模型"},
	}
	for _, tt := range tests {
		if got := Postprocess(tt.in); got != tt.want {
			t.Fatalf("Postprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
