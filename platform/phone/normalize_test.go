package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+5547999887766", "+5547999887766"},
		{"47 99988-7766", "+5547999887766"},
		{"(47) 99988-7766", "+5547999887766"},
		{"", ""},
		{"not a phone", "not a phone"},
	}

	for _, tc := range tests {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFromJID(t *testing.T) {
	tests := []struct {
		jid  string
		want string
	}{
		{"5547999887766@s.whatsapp.net", "+5547999887766"},
		{"123456789-987654@g.us", ""},
		{"", ""},
	}

	for _, tc := range tests {
		if got := FromJID(tc.jid); got != tc.want {
			t.Fatalf("FromJID(%q) = %q, want %q", tc.jid, got, tc.want)
		}
	}
}

func TestToJID(t *testing.T) {
	if got := ToJID("+5547999887766"); got != "5547999887766@s.whatsapp.net" {
		t.Fatalf("ToJID = %q", got)
	}
	if got := ToJID(""); got != "" {
		t.Fatalf("ToJID(empty) = %q, want empty", got)
	}
}

func TestFromJIDRoundTrip(t *testing.T) {
	jid := ToJID("+5547999887766")
	if got := FromJID(jid); got != "+5547999887766" {
		t.Fatalf("round trip = %q", got)
	}
}
