package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKoreanToRoman(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"한글", "hangeul"},
		{"폴라애드", "polraaedeu"},
		{"카페2호점", "kape2hojeom"},
		{"already latin", "already latin"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, KoreanToRoman(tc.in), "input %q", tc.in)
	}
}

func TestToSlackChannelName(t *testing.T) {
	assert.Equal(t, "hangeul", ToSlackChannelName("한글"))
	assert.Equal(t, "my_shop", ToSlackChannelName("My  Shop"))
	assert.Equal(t, "cafe-1", ToSlackChannelName("Cafe-1!"))

	long := ""
	for i := 0; i < 30; i++ {
		long += "가나다"
	}
	assert.LessOrEqual(t, len(ToSlackChannelName(long)), 80)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "01012345678", NormalizePhone("010-1234-5678"))
	assert.Equal(t, "01012345678", NormalizePhone("01012345678"))
}
