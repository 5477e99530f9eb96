package model

import "testing"

func TestValidVisaStatus(t *testing.T) {
	valid := []string{
		"pending", "documentsPending", "paymentPending", "paymentVerified",
		"assigned", "processing", "completed", "rejected",
	}
	for _, s := range valid {
		if !ValidVisaStatus(s) {
			t.Errorf("ValidVisaStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Pending", "approved", "payment_pending", "done"} {
		if ValidVisaStatus(s) {
			t.Errorf("ValidVisaStatus(%q) = true, want false", s)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []VisaStatus{StatusCompleted, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []VisaStatus{StatusPending, StatusDocumentsPending, StatusPaymentPending, StatusPaymentVerified, StatusAssigned, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestOfficeBearing(t *testing.T) {
	for _, s := range []VisaStatus{StatusAssigned, StatusProcessing} {
		if !s.OfficeBearing() {
			t.Errorf("%s.OfficeBearing() = false, want true", s)
		}
	}
	for _, s := range []VisaStatus{StatusPending, StatusPaymentVerified, StatusCompleted, StatusRejected} {
		if s.OfficeBearing() {
			t.Errorf("%s.OfficeBearing() = true, want false", s)
		}
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole("applicant") || !ValidRole("office") {
		t.Error("applicant and office must be registrable roles")
	}
	// админы создаются через seed, не через регистрацию
	if ValidRole("admin") {
		t.Error("admin must not be registrable")
	}
	if ValidRole("") || ValidRole("superuser") {
		t.Error("unknown roles must be rejected")
	}
}

func TestValidActorMessageType(t *testing.T) {
	for _, s := range []string{"text", "image", "document"} {
		if !ValidActorMessageType(s) {
			t.Errorf("ValidActorMessageType(%q) = false, want true", s)
		}
	}
	// payment и system недоступны через публичный send
	for _, s := range []string{"payment", "system", ""} {
		if ValidActorMessageType(s) {
			t.Errorf("ValidActorMessageType(%q) = true, want false", s)
		}
	}
}

func TestHasCapacity(t *testing.T) {
	o := Office{VisaLimit: 2, ActiveVisaRequests: 0}
	if !o.HasCapacity() {
		t.Error("office with free slots must have capacity")
	}
	o.ActiveVisaRequests = 2
	if o.HasCapacity() {
		t.Error("office at its limit must not have capacity")
	}
}
