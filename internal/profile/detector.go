package profile

import "github.com/nfrund/profilesync/internal/domain"

// identityOwned are the fields whose system of record is the identity provider.
var identityOwned = []domain.Field{domain.FieldUsername, domain.FieldFirstName, domain.FieldLastName}

// Classify splits the touched fields of an edit into per-backend change sets.
// It is pure: the same edit always yields the same classification.
//
// The application store is written only when bio was touched. Username rides
// along in that write when it was touched too, because the store mirrors it.
func Classify(edit domain.ProfileEdit) domain.ChangeClassification {
	c := domain.ChangeClassification{
		IdentityFields: domain.FieldSet{},
		AppStoreFields: domain.FieldSet{},
	}
	for _, f := range identityOwned {
		if edit.Touched.Has(f) {
			c.IdentityFields.Add(f)
		}
	}
	if edit.Touched.Has(domain.FieldBio) {
		c.AppStoreFields.Add(domain.FieldBio)
		if edit.Touched.Has(domain.FieldUsername) {
			c.AppStoreFields.Add(domain.FieldUsername)
		}
	}
	return c
}

// identityUpdate builds the partial identity payload for the classified fields.
func identityUpdate(edit domain.ProfileEdit, fields domain.FieldSet) domain.IdentityUpdate {
	var u domain.IdentityUpdate
	if fields.Has(domain.FieldUsername) {
		u.Username = edit.Username
	}
	if fields.Has(domain.FieldFirstName) {
		u.FirstName = edit.FirstName
	}
	if fields.Has(domain.FieldLastName) {
		u.LastName = edit.LastName
	}
	return u
}

// mergeRecord overlays the classified application store fields on the
// current record. The store receives the whole record, not a field patch.
func mergeRecord(current domain.UserRecord, edit domain.ProfileEdit, fields domain.FieldSet) domain.UserRecord {
	merged := current
	if len(current.Posts) > 0 {
		merged.Posts = append([]string(nil), current.Posts...)
	}
	if fields.Has(domain.FieldBio) {
		// A touched bio without a value was cleared by the user.
		merged.Bio = ""
		if edit.Bio != nil {
			merged.Bio = *edit.Bio
		}
	}
	if fields.Has(domain.FieldUsername) && edit.Username != nil {
		merged.Username = *edit.Username
	}
	return merged
}
