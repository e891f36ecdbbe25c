package handler

import "github.com/ruby/userauth-service/internal/core/domain"

// --- Service result → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	roles := make([]roleResponse, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, roleResponse{Name: r.Name})
	}
	return userResponse{
		Email: u.Email,
		Name:  u.Name,
		Roles: roles,
	}
}

func toLoginResponse(u *domain.User, token string) loginResponse {
	return loginResponse{userResponse: toUserResponse(u), Token: token}
}
