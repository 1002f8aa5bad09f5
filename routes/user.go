package routes

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slices"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
	"github.com/14sf/Sfm.pay/utils"
)

func Register(ctx iris.Context) {
	var userInput RegisterUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newUser models.User
	userExists, userExistsErr := getAndHandleUserExists(&newUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(userInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newUser = models.User{
		ID:        uuid.NewString(),
		FirstName: userInput.FirstName,
		LastName:  userInput.LastName,
		Email:     strings.ToLower(userInput.Email),
		Password:  hashedPassword,
	}

	storage.DB.Create(&newUser)

	returnUser(newUser, ctx)
}

func Login(ctx iris.Context) {
	var userInput LoginUserInput
	err := ctx.ReadJSON(&userInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingUser models.User
	errorMsg := "Invalid email or password."
	userExists, userExistsErr := getAndHandleUserExists(&existingUser, userInput.Email)
	if userExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !userExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingUser.Password), []byte(userInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnUser(existingUser, ctx)
}

// AlterPushToken adds or removes an Expo push token on the user's account.
func AlterPushToken(ctx iris.Context) {
	id := ctx.Params().Get("id")
	if id != utils.CurrentUserID(ctx) {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	user := getUserByID(id, ctx)
	if user == nil {
		return
	}

	var req AlterPushTokenInput
	err := ctx.ReadJSON(&req)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var currTokens []string
	var pushTokens []string

	if user.PushTokens != nil {
		if unmarshalErr := json.Unmarshal(user.PushTokens, &currTokens); unmarshalErr != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	switch req.Op {
	case "add":
		pushTokens = currTokens
		if !slices.Contains(currTokens, req.Token) {
			pushTokens = append(currTokens, req.Token)
		}
	case "replace":
		pushTokens = []string{req.Token}
	case "remove":
		for _, token := range currTokens {
			if req.Token != token {
				pushTokens = append(pushTokens, token)
			}
		}
	}

	marshalled, marshalErr := json.Marshal(pushTokens)
	if marshalErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if err := storage.DB.Model(user).Update("push_tokens", marshalled).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// AllowsNotifications toggles push delivery; disabling clears the stored
// tokens so stale devices never receive anything.
func AllowsNotifications(ctx iris.Context) {
	id := ctx.Params().Get("id")
	if id != utils.CurrentUserID(ctx) {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	user := getUserByID(id, ctx)
	if user == nil {
		return
	}

	var req AllowsNotificationsInput
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if req.AllowsNotifications == nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	if err := storage.DB.Model(user).Update("allows_notifications", *req.AllowsNotifications).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !*req.AllowsNotifications {
		if err := storage.DB.Model(user).Update("push_tokens", nil).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}
	ctx.JSON(iris.Map{"success": true})
}

func getAndHandleUserExists(user *models.User, email string) (exists bool, err error) {
	userExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(user)

	if userExistsQuery.Error != nil {
		return false, userExistsQuery.Error
	}

	return userExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func getUserByID(id string, ctx iris.Context) *models.User {
	var user models.User
	result := storage.DB.Where("id = ?", id).Limit(1).Find(&user)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &user
}

func returnUser(user models.User, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(user.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":                  user.ID,
		"firstName":           user.FirstName,
		"lastName":            user.LastName,
		"email":               user.Email,
		"phoneNumber":         user.PhoneNumber,
		"allowsNotifications": user.AllowsNotifications,
		"accessToken":         string(tokenPair.AccessToken),
		"refreshToken":        string(tokenPair.RefreshToken),
	})
}

type RegisterUserInput struct {
	FirstName string `json:"firstName" validate:"required,max=256"`
	LastName  string `json:"lastName" validate:"required,max=256"`
	Email     string `json:"email" validate:"required,max=256,email"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
}

type LoginUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AlterPushTokenInput struct {
	Token string `json:"token" validate:"required"`
	Op    string `json:"op" validate:"required,oneof=add replace remove"`
}

type AllowsNotificationsInput struct {
	AllowsNotifications *bool `json:"allowsNotifications" validate:"required"`
}
