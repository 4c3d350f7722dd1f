package cmd

import "testing"

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://app:s3cret@db:5432/ledger", "postgres://app:****@db:5432/ledger"},
		{"postgres://app@db/ledger", "postgres://app@db/ledger"},
		{"host=db user=app password=s3cret dbname=ledger", "host=db user=app password=**** dbname=ledger"},
		{"host=db dbname=ledger", "host=db dbname=ledger"},
	}
	for _, tt := range tests {
		if got := maskDSN(tt.in); got != tt.want {
			t.Errorf("maskDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFloatIn(t *testing.T) {
	open := floatIn(0, 0.5, false)
	for _, s := range []string{"0.05", " 0.5 ", "0.0001"} {
		if err := open(s); err != nil {
			t.Errorf("open(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range []string{"0", "0.6", "-1", "abc", ""} {
		if err := open(s); err == nil {
			t.Errorf("open(%q) accepted", s)
		}
	}

	closed := floatIn(0, 100, true)
	if err := closed("0"); err != nil {
		t.Errorf("closed(0) = %v, want nil", err)
	}
	if err := closed("100.1"); err == nil {
		t.Error("closed(100.1) accepted")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:9092, ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("splitList = %q", got)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %q, want nil", got)
	}
}

func TestUserLabel(t *testing.T) {
	if got := userLabel(0); got != "All users" {
		t.Errorf("userLabel(0) = %q", got)
	}
	if got := userLabel(7); got != "User 7" {
		t.Errorf("userLabel(7) = %q", got)
	}
}
