package domain

import "errors"

var ErrUnauthorized = errors.New("unauthorized")
var ErrCartNotFound = errors.New("cart not found")
var ErrProductNotFound = errors.New("product not found")
var ErrInvalidCartItem = errors.New("invalid cart item")
var ErrInvalidProduct = errors.New("invalid product")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
