package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/qkfdcom/lcqk/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Merges the three tier lists. Fails with VALIDATION listing the offending usernames per tier if any list contains Chinese characters.",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "addUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/users",
		Summary:     "Add or update user",
		Description: "Adds a username to a tier, or updates its tag if already present",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleAddUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "editUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/{tier}/{username}",
		Summary:     "Edit user tag",
		Description: "Replaces the tag of an existing entry",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleEditUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{tier}/{username}",
		Summary:     "Delete user",
		Description: "Removes a username from a tier",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleDeleteUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "batchDeleteUsers",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/batch-delete",
		Summary:     "Delete users",
		Description: "Removes several usernames from one tier and returns how many were removed",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleBatchDeleteUsers)
}

// === DTOs ===

// ListUsersInput contains parameters for listing users.
type ListUsersInput struct {
	Tier     string `query:"tier" doc:"normal, warning, danger (or storage key) or all"`
	Search   string `query:"q" doc:"Case-insensitive match on username or tag"`
	Page     int    `query:"page" minimum:"1" default:"1" doc:"1-based page number"`
	PageSize int    `query:"page_size" minimum:"1" maximum:"200" default:"20" doc:"Entries per page"`
}

// ListUsersOutput wraps the list page for Huma.
type ListUsersOutput struct {
	Body *service.ListPage
}

// AddUserRequest is the request body for adding a user.
type AddUserRequest struct {
	Username string `json:"username" doc:"Platform username"`
	Tier     string `json:"tier" doc:"normal, warning or danger"`
	Tag      string `json:"tag,omitempty" doc:"Free text note"`
}

// AddUserInput wraps the add request for Huma.
type AddUserInput struct {
	Authorization string `header:"Authorization"`
	Body          AddUserRequest
}

// UserResponse describes a saved entry.
type UserResponse struct {
	Username string `json:"username" doc:"Platform username"`
	Tier     string `json:"tier" doc:"Tier the entry was saved in"`
	Tag      string `json:"tag" doc:"Free text note"`
	Created  bool   `json:"created" doc:"False when an existing entry was updated"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// EditUserRequest is the request body for editing a tag.
type EditUserRequest struct {
	Tag string `json:"tag" doc:"New tag"`
}

// EditUserInput wraps the edit request for Huma.
type EditUserInput struct {
	Authorization string `header:"Authorization"`
	Tier          string `path:"tier" doc:"Tier name or storage key"`
	Username      string `path:"username" doc:"Username to edit"`
	Body          EditUserRequest
}

// DeleteUserInput contains parameters for deleting a user.
type DeleteUserInput struct {
	Authorization string `header:"Authorization"`
	Tier          string `path:"tier" doc:"Tier name or storage key"`
	Username      string `path:"username" doc:"Username to remove"`
}

// BatchDeleteRequest is the request body for removing several users.
type BatchDeleteRequest struct {
	Tier      string   `json:"tier" doc:"Tier name or storage key"`
	Usernames []string `json:"usernames" minItems:"1" doc:"Usernames to remove"`
}

// BatchDeleteInput wraps the batch delete request for Huma.
type BatchDeleteInput struct {
	Authorization string `header:"Authorization"`
	Body          BatchDeleteRequest
}

// RemovedResponse reports how many entries were removed.
type RemovedResponse struct {
	Removed int `json:"removed" doc:"Number of entries removed"`
}

// RemovedOutput wraps the removed response for Huma.
type RemovedOutput struct {
	Body RemovedResponse
}

// === Handlers ===

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	page, err := s.services.List.List(ctx, service.ListQuery{
		Tier:     input.Tier,
		Search:   input.Search,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return &ListUsersOutput{Body: page}, nil
}

func (s *Server) handleAddUser(ctx context.Context, input *AddUserInput) (*UserOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	created, err := s.services.List.Add(ctx, service.AddRequest{
		Username: input.Body.Username,
		Tier:     input.Body.Tier,
		Tag:      input.Body.Tag,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: UserResponse{
		Username: input.Body.Username,
		Tier:     input.Body.Tier,
		Tag:      input.Body.Tag,
		Created:  created,
	}}, nil
}

func (s *Server) handleEditUser(ctx context.Context, input *EditUserInput) (*UserOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.services.List.EditTag(ctx, input.Tier, input.Username, input.Body.Tag); err != nil {
		return nil, err
	}

	return &UserOutput{Body: UserResponse{
		Username: input.Username,
		Tier:     input.Tier,
		Tag:      input.Body.Tag,
	}}, nil
}

func (s *Server) handleDeleteUser(ctx context.Context, input *DeleteUserInput) (*RemovedOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.services.List.Delete(ctx, input.Tier, input.Username); err != nil {
		return nil, err
	}
	return &RemovedOutput{Body: RemovedResponse{Removed: 1}}, nil
}

func (s *Server) handleBatchDeleteUsers(ctx context.Context, input *BatchDeleteInput) (*RemovedOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	removed, err := s.services.List.BatchDelete(ctx, input.Body.Tier, input.Body.Usernames)
	if err != nil {
		return nil, err
	}
	return &RemovedOutput{Body: RemovedResponse{Removed: removed}}, nil
}
