package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"yes", true},
		{"Yes!", true},
		{"okay", true},
		{"sure, go ahead", true},
		{"yes, tomorrow at 5", true},
		{"हाँ", true},
		{"ஆம்", true},
		{"అవును", true},
		{"maybe", false},
		{"my leg is not yes good honestly speaking today", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAffirmative(tt.text))
		})
	}
}

func TestIsNegative(t *testing.T) {
	assert.True(t, IsNegative("no"))
	assert.True(t, IsNegative("Nope."))
	assert.True(t, IsNegative("नहीं"))
	assert.True(t, IsNegative("வேண்டாம்"))
	assert.False(t, IsNegative("november works"))
	assert.False(t, IsNegative("yes"))
}

func TestIsCancelBooking(t *testing.T) {
	assert.True(t, IsCancelBooking("please cancel the booking"))
	assert.True(t, IsCancelBooking("cancel appointment"))
	assert.True(t, IsCancelBooking("बुकिंग रद्द करो"))
	assert.False(t, IsCancelBooking("book an appointment"))
	assert.False(t, IsCancelBooking("no"))
}

func TestIsBookingIntent(t *testing.T) {
	assert.True(t, IsBookingIntent("I want to book an appointment"))
	assert.True(t, IsBookingIntent("can i see a doctor"))
	assert.True(t, IsBookingIntent("डॉक्टर से मिलना है"))
	assert.False(t, IsBookingIntent("i have a headache"))
}

func TestQuickIntents(t *testing.T) {
	assert.True(t, IsOtherDoctors("show me other doctors"))
	assert.True(t, IsViewAppointment("what is my upcoming appointment"))
	assert.True(t, IsViewMoreAvailability("view more availability"))
	assert.True(t, IsPrescriptionsQuery("list my prescriptions"))
	assert.True(t, IsMedicationInfoQuery("tell me about my medication info"))
	assert.True(t, IsRecordsQuery("open my health records"))
	assert.True(t, WantsOnlineConsult("yes, online please"))

	assert.False(t, IsOtherDoctors("i have fever"))
	assert.False(t, IsViewAppointment("book a doctor"))
	assert.False(t, WantsOnlineConsult("in person"))
}
