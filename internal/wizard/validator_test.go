package wizard

import (
	"errors"
	"strings"
	"testing"
)

var testLimits = Limits{MinBuyInEth: 0.01, MaxBuyInEth: 1}

func TestValidateName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Goblin Coin", "Goblin Coin", true},
		{"  Goblin   Coin  ", "Goblin Coin", true},
		{"ab", "", false},
		{"abc", "abc", true},
		{strings.Repeat("a", 50), strings.Repeat("a", 50), true},
		{strings.Repeat("a", 51), "", false},
		{"<b>Goblin</b>", "Goblin", true},
		{"Goblin!", "", false},
		{"snake_case-name 9", "snake_case-name 9", true},
		{"", "", false},
		{"日本語トークン", "", false},
	}
	for _, tc := range cases {
		val, reason, err := Validate(StepName, tc.in, testLimits)
		if err != nil {
			t.Fatalf("Validate(name, %q): %v", tc.in, err)
		}
		if tc.ok != (reason == "") {
			t.Errorf("Validate(name, %q): reason=%q, want ok=%v", tc.in, reason, tc.ok)
			continue
		}
		if tc.ok && val.Text != tc.want {
			t.Errorf("Validate(name, %q) = %q, want %q", tc.in, val.Text, tc.want)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"GOB", "GOB", true},
		{"gob", "GOB", true},
		{"m", "", false},
		{"MA", "MA", true},
		{"MATMATMATM", "MATMATMATM", true},
		{"MATMATMATMA", "", false},
		{"GO B", "", false},
		{"GO1", "", false},
	}
	for _, tc := range cases {
		val, reason, err := Validate(StepSymbol, tc.in, testLimits)
		if err != nil {
			t.Fatalf("Validate(symbol, %q): %v", tc.in, err)
		}
		if tc.ok != (reason == "") {
			t.Errorf("Validate(symbol, %q): reason=%q, want ok=%v", tc.in, reason, tc.ok)
			continue
		}
		if tc.ok && val.Text != tc.want {
			t.Errorf("Validate(symbol, %q) = %q, want %q", tc.in, val.Text, tc.want)
		}
	}
}

func TestValidateDescription(t *testing.T) {
	val, reason, err := Validate(StepDescription, strings.Repeat("d", 500), testLimits)
	if err != nil || reason != "" {
		t.Fatalf("500 chars should pass, got reason=%q err=%v", reason, err)
	}
	if len(val.Text) != 500 {
		t.Fatalf("normalized length = %d, want 500", len(val.Text))
	}

	_, reason, err = Validate(StepDescription, strings.Repeat("d", 501), testLimits)
	if err != nil {
		t.Fatal(err)
	}
	if reason == "" {
		t.Fatal("501 chars should be rejected")
	}
	if !strings.Contains(reason, "1 over the limit") {
		t.Errorf("rejection should name the overflow, got %q", reason)
	}

	val, reason, err = Validate(StepDescription, "SKIP", testLimits)
	if err != nil || reason != "" {
		t.Fatalf("skip should pass, got reason=%q err=%v", reason, err)
	}
	if !val.Skip {
		t.Fatal("expected skip value")
	}
}

func TestValidateBuyIn(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		skip bool
		want float64
	}{
		{"0.01", true, false, 0.01},
		{"0.009", false, false, 0},
		{"1", true, false, 1},
		{"1.01", false, false, 0},
		{"0.5", true, false, 0.5},
		{"skip", true, true, 0},
		{"Skip", true, true, 0},
		{"not a number", false, false, 0},
		{"-0.5", false, false, 0},
		// ParseFloat parses these, and NaN in particular defeats range
		// comparisons.
		{"nan", false, false, 0},
		{"NaN", false, false, 0},
		{"inf", false, false, 0},
		{"+Inf", false, false, 0},
		{"-inf", false, false, 0},
	}
	for _, tc := range cases {
		val, reason, err := Validate(StepBuyIn, tc.in, testLimits)
		if err != nil {
			t.Fatalf("Validate(buyin, %q): %v", tc.in, err)
		}
		if tc.ok != (reason == "") {
			t.Errorf("Validate(buyin, %q): reason=%q, want ok=%v", tc.in, reason, tc.ok)
			continue
		}
		if !tc.ok {
			continue
		}
		if val.Skip != tc.skip {
			t.Errorf("Validate(buyin, %q): skip=%v, want %v", tc.in, val.Skip, tc.skip)
		}
		if val.Amount != tc.want {
			t.Errorf("Validate(buyin, %q) = %v, want %v", tc.in, val.Amount, tc.want)
		}
	}
}

func TestValidateWalletAddress(t *testing.T) {
	good := "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	val, reason, err := Validate(StepWalletAddress, " "+good+" ", testLimits)
	if err != nil || reason != "" {
		t.Fatalf("valid address rejected: reason=%q err=%v", reason, err)
	}
	if val.Text != good {
		t.Fatalf("address = %q, want %q", val.Text, good)
	}

	for _, bad := range []string{
		"7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		"0x7E5F4552091A69125d5DfCb7b8C2659029395Bd",
		"0x7E5F4552091A69125d5DfCb7b8C2659029395Bdff",
		"0xZZ5F4552091A69125d5DfCb7b8C2659029395Bdf",
	} {
		_, reason, err := Validate(StepWalletAddress, bad, testLimits)
		if err != nil {
			t.Fatal(err)
		}
		if reason == "" {
			t.Errorf("address %q should be rejected", bad)
		}
	}
}

func TestValidateImageStepText(t *testing.T) {
	val, reason, _ := Validate(StepImage, "skip", testLimits)
	if reason != "" || !val.Skip {
		t.Fatal("skip should be accepted at the image step")
	}
	_, reason, _ = Validate(StepImage, "here is my image", testLimits)
	if reason == "" {
		t.Fatal("arbitrary text at the image step should be rejected")
	}
}

func TestValidateBadStep(t *testing.T) {
	_, _, err := Validate(StepPreview, "anything", testLimits)
	if !errors.Is(err, ErrBadStep) {
		t.Fatalf("expected ErrBadStep, got %v", err)
	}
}

func TestValidateImageAttachment(t *testing.T) {
	if reason := ValidateImage("image/png", 1024); reason != "" {
		t.Errorf("png should pass, got %q", reason)
	}
	if reason := ValidateImage("image/png", ImageMaxBytes+1); reason == "" {
		t.Error("oversize file should be rejected")
	}
	if reason := ValidateImage("application/pdf", 1024); reason == "" {
		t.Error("pdf should be rejected")
	}
	if reason := ValidateImage("", 1024); reason != "" {
		t.Errorf("unknown mime with small size should pass, got %q", reason)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"<script>alert(1)</script>hello", "alert(1)hello"},
		{"a\tb\nc", "abc"},
		{"  spaced   out  ", "spaced out"},
		{"emoji 🚀 gone", "emoji gone"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
