package customizations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Moderation reasons offered by the Moderate action.
var moderationReasons = []string{"resignation", "dismissal", "long-term illness", "other"}

func customizeUsers(cb *registry.CollectionBuilder, opts Options) {
	cb.AddField("fullname", registry.ComputedField{
		ColumnType:   core.TypeString,
		Dependencies: []string{"firstname", "lastname"},
		Values: func(records []core.Record, _ registry.Context) ([]any, error) {
			out := make([]any, len(records))
			for i, r := range records {
				out[i] = fmt.Sprintf("%s %s", text(r["firstname"]), text(r["lastname"]))
			}
			return out, nil
		},
	}).
		// Contains only looks inside each name, so a needle spanning the
		// separating space ("e D" in "Jane Doe") does not match.
		ReplaceFieldOperator("fullname", core.OpContains, func(value any, _ registry.Context) (core.ConditionTree, error) {
			return core.OrOf(
				core.Leaf("firstname", core.OpContains, value),
				core.Leaf("lastname", core.OpContains, value),
			), nil
		}).
		ReplaceFieldOperator("fullname", core.OpEqual, func(value any, _ registry.Context) (core.ConditionTree, error) {
			s, _ := value.(string)
			var matches []core.ConditionTree
			for i := range len(s) {
				if s[i] != ' ' {
					continue
				}
				matches = append(matches, core.AndOf(
					core.Leaf("firstname", core.OpEqual, s[:i]),
					core.Leaf("lastname", core.OpEqual, s[i+1:]),
				))
			}
			switch len(matches) {
			case 0:
				// A full name always holds a space.
				return core.Leaf("id", core.OpIn, []any{}), nil
			case 1:
				return matches[0], nil
			}
			return core.OrOf(matches...), nil
		}).
		ReplaceFieldSorting("fullname", core.Sort{
			{Field: "firstname", Ascending: true},
			{Field: "lastname", Ascending: true},
		}).
		ReplaceFieldWriting("fullname", func(value any, c registry.Context) (core.Record, error) {
			first, last, ok := splitFullname(value)
			if !ok {
				return nil, &core.InvalidWriteValueError{
					Collection: c.CollectionName,
					Field:      "fullname",
					Value:      value,
					Reason:     "expected a first name and a last name separated by a space",
				}
			}
			return core.Record{"firstname": first, "lastname": last}, nil
		})

	cb.AddAction("Anonymize user", action.Definition{Scope: action.Bulk, Execute: anonymizeUsers}).
		AddAction("Change a plan", action.Definition{
			Scope:  action.Single,
			Fields: []string{"subscription:id"},
			Form: []action.FormField{{
				Label:          "plan",
				Type:           action.TypeCollection,
				CollectionName: "plans",
				Required:       true,
				Default: func(ctx context.Context, fc *action.FormContext) (any, error) {
					r, err := fc.Record(ctx, "subscription:plan_id")
					if err != nil || r == nil {
						return nil, err
					}
					if id := r.Value("subscription:plan_id"); id != nil {
						return []any{id}, nil
					}
					return nil, nil
				},
			}},
			Execute: changePlan,
		}).
		AddAction("Reset password", action.Definition{Scope: action.Single, Execute: resetPassword}).
		AddAction("Moderate", action.Definition{
			Scope:  action.Single,
			Fields: []string{"is_blocked"},
			Form: []action.FormField{
				{
					Label:       "User Name",
					Type:        action.TypeString,
					Description: "You will block the following user",
					ReadOnly:    true,
					Default: func(ctx context.Context, fc *action.FormContext) (any, error) {
						r, err := fc.Record(ctx, "fullname")
						if err != nil || r == nil {
							return nil, err
						}
						return r["fullname"], nil
					},
				},
				{Label: "reason", Type: action.TypeEnum, EnumValues: moderationReasons, Required: true},
				{
					Label:       "explanation",
					Type:        action.TypeString,
					Description: "Fill in the reason",
					If:          func(values map[string]any) bool { return values["reason"] == "other" },
				},
			},
			Execute: moderate,
		}).
		AddAction("Impersonate this user", action.Definition{
			Scope: action.Single,
			Execute: func(_ context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
				id, err := ac.RecordID()
				if err != nil {
					return action.Result{}, err
				}
				return rb.Webhook(opts.ImpersonationURL, "", nil, map[string]any{
					"adminToken": opts.AdminToken,
					"userId":     id,
				}), nil
			},
		})
}

// splitFullname cuts a full name on its first space.
func splitFullname(value any) (string, string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", "", false
	}
	return strings.Cut(s, " ")
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func anonymizeUsers(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
	failed := func(err error) (action.Result, error) {
		return rb.Error(fmt.Sprintf("Failed to anonymize user(s) %s.", err)), nil
	}

	err := ac.UpdateSelection(ctx, core.Record{
		"firstname":        "Anonymous",
		"lastname":         "Anonymous",
		"email":            "anonymous@anonymous.anonymous",
		"identity_picture": nil,
		"cellphone":        "Unknown",
		"password":         "",
		"is_blocked":       true,
		"signup_date":      nil,
	})
	if err != nil {
		return failed(err)
	}

	addresses, err := ac.DataSource.Collection("addresses")
	if err != nil {
		return failed(err)
	}
	err = addresses.Update(ctx, core.Leaf("user_id", core.OpIn, ac.RecordIDs()), core.Record{
		"user_id": nil,
		"country": "Unknown",
		"city":    "Unknown",
		"street":  "Unknown",
		"number":  "0",
	})
	if err != nil {
		return failed(err)
	}
	return rb.Success("User(s) anonymized!"), nil
}

func changePlan(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
	user, err := ac.Record()
	if err != nil {
		return action.Result{}, err
	}
	subscriptionID := user.Value("subscription:id")
	if subscriptionID == nil {
		return rb.Error("You can not change the plan, the user does not have subscriptions yet."), nil
	}
	plan, ok := pickedID(ac.FormValues["plan"])
	if !ok {
		return rb.Error("Failed to change plan: no plan selected."), nil
	}

	subscriptions, err := ac.DataSource.Collection("subscriptions")
	if err == nil {
		err = subscriptions.Update(ctx, core.Leaf("id", core.OpEqual, subscriptionID), core.Record{"plan_id": plan})
	}
	if err != nil {
		return rb.Error(fmt.Sprintf("Failed to change plan %s.", err)), nil
	}
	return rb.Success("Plan successfully updated."), nil
}

func resetPassword(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
	password, err := randomPassword()
	if err == nil {
		err = ac.UpdateSelection(ctx, core.Record{"password": password})
	}
	if err != nil {
		return rb.Error(fmt.Sprintf("Failed to reset password %s.", err)), nil
	}
	return rb.Success("Password successfully updated, a mail has sended to the user with his new password."), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func moderate(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
	user, err := ac.Record()
	if err != nil {
		return action.Result{}, err
	}
	if blocked, _ := user["is_blocked"].(bool); blocked {
		return rb.Success("User already blocked."), nil
	}
	var form struct {
		Reason      string `form:"reason"`
		Explanation string `form:"explanation"`
	}
	if err := ac.DecodeForm(&form); err != nil {
		return action.Result{}, err
	}
	if err := ac.UpdateSelection(ctx, core.Record{"is_blocked": true}); err != nil {
		return rb.Error(fmt.Sprintf("Failed block user %s.", err)), nil
	}
	ac.Logger.Info("user blocked",
		slog.Any("user_id", ac.RecordIDs()[0]),
		slog.String("reason", form.Reason),
		slog.String("explanation", form.Explanation))
	return rb.Success("User successfully blocked."), nil
}
