package inflect_test

import (
	"testing"

	"github.com/leapstack-labs/schemais/pkg/inflect"
	"github.com/stretchr/testify/assert"
)

func TestTableize(t *testing.T) {
	tests := []struct {
		class string
		want  string
	}{
		{"Comment", "comments"},
		{"Person", "people"},
		{"UserProfile", "user_profiles"},
		{"Category", "categories"},
		{"HTMLPage", "html_pages"},
		{"Status", "statuses"},
		{"UserInformation", "user_information"},
		{"Admin::User", "admin/users"},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			assert.Equal(t, tt.want, inflect.Tableize(tt.class))
			assert.Equal(t, tt.want, inflect.Default{}.Tableize(tt.class))
		})
	}
}

func TestUnderscore(t *testing.T) {
	assert.Equal(t, "api_key", inflect.Underscore("APIKey"))
	assert.Equal(t, "admin/user_role", inflect.Underscore("Admin::UserRole"))
	assert.Equal(t, "v2_thing", inflect.Underscore("V2Thing"))
}

func TestDemodulize(t *testing.T) {
	assert.Equal(t, "User", inflect.Demodulize("Admin::User"))
	assert.Equal(t, "User", inflect.Demodulize("User"))
}
