package handlers

import (
	"errors"

	"contactdesk/apperrors"
	"contactdesk/db"
	"contactdesk/pkg/metrics"
	"contactdesk/services/authz"
	"contactdesk/utils"

	"github.com/gofiber/fiber/v2"
)

// ContactHandler serves the contact CRUD endpoints. All record access is
// scoped through the authz policy; records outside the requester's scope
// surface as the undistinguished not-found error.
type ContactHandler struct {
	store *db.Store
	icons *IconStore
}

func NewContactHandler(store *db.Store, icons *IconStore) *ContactHandler {
	return &ContactHandler{store: store, icons: icons}
}

func requester(c *fiber.Ctx) (id, role string) {
	id, _ = c.Locals("user_id").(string)
	role, _ = c.Locals("role").(string)
	return id, role
}

// HandleList returns the contacts in scope, newest first, optionally
// filtered by a case-insensitive name search. Admins may pass targetUserId
// to list another user's contacts.
func (h *ContactHandler) HandleList(c *fiber.Ctx) error {
	requesterID, role := requester(c)
	ownerID := authz.ResolveScope(requesterID, role, c.Query("targetUserId"))

	contacts, err := h.store.ListContacts(c.Context(), ownerID, c.Query("search"))
	if err != nil {
		return apperrors.NewDatabaseError("list_contacts", err)
	}

	metrics.RecordContactOperation("list")
	return c.JSON(contacts)
}

// HandleGet returns a single contact by id.
func (h *ContactHandler) HandleGet(c *fiber.Ctx) error {
	requesterID, role := requester(c)

	contact, err := h.store.GetContact(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NewNotFound()
		}
		return apperrors.NewDatabaseError("get_contact", err)
	}
	if !authz.CanAccess(requesterID, role, contact.CreatedBy) {
		return apperrors.NewNotFound()
	}

	metrics.RecordContactOperation("get")
	return c.JSON(contact)
}

// HandleCreate creates a contact from a multipart form. The icon part is
// optional and is validated and written to disk before the row is inserted,
// so a rejected upload never leaves a record behind.
func (h *ContactHandler) HandleCreate(c *fiber.Ctx) error {
	requesterID, role := requester(c)
	ownerID := authz.ResolveScope(requesterID, role, c.FormValue("targetUserId"))

	contact := db.Contact{
		Name:      c.FormValue("name"),
		Email:     c.FormValue("email"),
		Phone:     c.FormValue("phone"),
		Notes:     c.FormValue("notes"),
		CreatedBy: ownerID,
	}

	if err := utils.ValidateContactName(contact.Name); err != nil {
		return err
	}
	if err := utils.ValidateEmail(contact.Email); err != nil {
		return err
	}
	if err := utils.ValidatePhone(contact.Phone); err != nil {
		return err
	}

	if fileHeader, err := c.FormFile("icon"); err == nil {
		iconPath, saveErr := h.icons.Save(fileHeader)
		if saveErr != nil {
			return saveErr
		}
		contact.Icon = iconPath
	}

	created, err := h.store.CreateContact(c.Context(), contact)
	if err != nil {
		// The row never made it in; release the file we just wrote.
		h.icons.Remove(contact.Icon)
		return apperrors.NewDatabaseError("create_contact", err)
	}

	metrics.RecordContactOperation("create")
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdate applies a partial update. Only fields present in the form
// are written; an uploaded icon replaces the stored file, which is then
// deleted from disk.
func (h *ContactHandler) HandleUpdate(c *fiber.Ctx) error {
	requesterID, role := requester(c)

	existing, err := h.store.GetContact(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NewNotFound()
		}
		return apperrors.NewDatabaseError("get_contact", err)
	}
	if !authz.CanAccess(requesterID, role, existing.CreatedBy) {
		return apperrors.NewNotFound()
	}

	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("Request must be multipart form data")
	}

	var patch db.ContactPatch
	field := func(name string) *string {
		values, ok := form.Value[name]
		if !ok || len(values) == 0 {
			return nil
		}
		return &values[0]
	}
	patch.Name = field("name")
	patch.Email = field("email")
	patch.Phone = field("phone")
	patch.Notes = field("notes")

	if patch.Name != nil {
		if err := utils.ValidateContactName(*patch.Name); err != nil {
			return err
		}
	}
	if patch.Email != nil {
		if err := utils.ValidateEmail(*patch.Email); err != nil {
			return err
		}
	}
	if patch.Phone != nil {
		if err := utils.ValidatePhone(*patch.Phone); err != nil {
			return err
		}
	}

	if fileHeader, ferr := c.FormFile("icon"); ferr == nil {
		iconPath, saveErr := h.icons.Save(fileHeader)
		if saveErr != nil {
			return saveErr
		}
		patch.Icon = &iconPath
	}

	updated, err := h.store.UpdateContact(c.Context(), existing.ID, patch)
	if err != nil {
		if patch.Icon != nil {
			h.icons.Remove(*patch.Icon)
		}
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NewNotFound()
		}
		return apperrors.NewDatabaseError("update_contact", err)
	}

	// The old file is unreferenced once the row points at the new one.
	if patch.Icon != nil && existing.Icon != "" && existing.Icon != *patch.Icon {
		h.icons.Remove(existing.Icon)
	}

	metrics.RecordContactOperation("update")
	return c.JSON(fiber.Map{
		"success": true,
		"contact": updated,
	})
}

// HandleDelete removes a contact and its icon file. Deleting the same id
// twice yields not-found on the second call.
func (h *ContactHandler) HandleDelete(c *fiber.Ctx) error {
	requesterID, role := requester(c)

	existing, err := h.store.GetContact(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NewNotFound()
		}
		return apperrors.NewDatabaseError("get_contact", err)
	}
	if !authz.CanAccess(requesterID, role, existing.CreatedBy) {
		return apperrors.NewNotFound()
	}

	removed, err := h.store.DeleteContact(c.Context(), existing.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NewNotFound()
		}
		return apperrors.NewDatabaseError("delete_contact", err)
	}

	h.icons.Remove(removed.Icon)

	metrics.RecordContactOperation("delete")
	return c.JSON(fiber.Map{
		"success": true,
		"removed": removed,
	})
}
