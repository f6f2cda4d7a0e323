package core

import (
	"context"
	"errors"
	"log/slog"
)

// AccountService implements the login, registration, fetch and update flows.
// Password hashing and verification go through the dispatcher.
type AccountService struct {
	users      UserRepository
	codec      *TokenCodec
	dispatcher *Dispatcher
	cost       int
	logger     *slog.Logger
}

// NewAccountService wires the collaborators. cost is the bcrypt work factor.
func NewAccountService(users UserRepository, codec *TokenCodec, d *Dispatcher, cost int, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = discardLogger()
	}
	return &AccountService{users: users, codec: codec, dispatcher: d, cost: cost, logger: logger}
}

// Login checks credentials. The body is not validated: unknown or malformed
// email and wrong or empty password all yield ErrInvalidLogin.
func (s *AccountService) Login(ctx context.Context, in LoginUser) (UserResponse, error) {
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		return UserResponse{}, ErrInvalidLogin
	}
	if err != nil {
		return UserResponse{}, err
	}

	ok, err := VerifyPassword(ctx, s.dispatcher, in.Password, u.PasswordHash)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrTaskPanicked) {
			return UserResponse{}, err
		}
		// A corrupt stored hash is reported to the caller like a bad password.
		s.logger.Warn("password verification failed", "user_id", u.ID, "error", err)
		return UserResponse{}, ErrInvalidLogin
	}
	if !ok {
		return UserResponse{}, ErrInvalidLogin
	}
	return s.userResponse(u)
}

// Register creates an account. Email and username collisions are both
// reported in one ErrorList.
func (s *AccountService) Register(ctx context.Context, in RegisterUser) (UserResponse, error) {
	if err := FromValidation(in.Validate()); err != nil {
		return UserResponse{}, err
	}

	errs := NewErrorList()
	taken, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return UserResponse{}, err
	}
	if taken {
		errs.Add(ErrEmailTaken)
	}
	taken, err = s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return UserResponse{}, err
	}
	if taken {
		errs.Add(ErrUsernameTaken)
	}
	if err := errs.Err(); err != nil {
		return UserResponse{}, err
	}

	hash, err := HashPassword(ctx, s.dispatcher, in.Password, s.cost)
	if err != nil {
		return UserResponse{}, err
	}

	// A concurrent registration can pass the checks above; the unique
	// constraints catch it here.
	u, err := s.users.Create(ctx, NewUserRecord{Email: in.Email, Username: in.Username, PasswordHash: hash})
	if err != nil {
		return UserResponse{}, conflictToAppError(err)
	}
	return s.userResponse(u)
}

// Current returns the user identified by subject with a fresh token.
func (s *AccountService) Current(ctx context.Context, subject int64) (UserResponse, error) {
	u, err := s.users.FindByID(ctx, subject)
	if err != nil {
		return UserResponse{}, err
	}
	return s.userResponse(u)
}

// Update applies the present fields of in to the subject's account.
func (s *AccountService) Update(ctx context.Context, subject int64, in UpdateUser) (UserResponse, error) {
	if err := FromValidation(in.Validate()); err != nil {
		return UserResponse{}, err
	}

	current, err := s.users.FindByID(ctx, subject)
	if err != nil {
		return UserResponse{}, err
	}
	if in.Empty() {
		return s.userResponse(current)
	}

	errs := NewErrorList()
	if in.Email != nil && *in.Email != current.Email {
		taken, err := s.users.EmailExists(ctx, *in.Email)
		if err != nil {
			return UserResponse{}, err
		}
		if taken {
			errs.Add(ErrEmailTaken)
		}
	}
	if in.Username != nil && *in.Username != current.Username {
		taken, err := s.users.UsernameExists(ctx, *in.Username)
		if err != nil {
			return UserResponse{}, err
		}
		if taken {
			errs.Add(ErrUsernameTaken)
		}
	}
	if err := errs.Err(); err != nil {
		return UserResponse{}, err
	}

	changes := UserChanges{Email: in.Email, Username: in.Username, Image: in.Image, Bio: in.Bio}
	if in.Password != nil {
		hash, err := HashPassword(ctx, s.dispatcher, *in.Password, s.cost)
		if err != nil {
			return UserResponse{}, err
		}
		changes.PasswordHash = &hash
	}

	u, err := s.users.Update(ctx, subject, changes)
	if err != nil {
		return UserResponse{}, conflictToAppError(err)
	}
	return s.userResponse(u)
}

func (s *AccountService) userResponse(u *UserRecord) (UserResponse, error) {
	token, err := s.codec.Mint(u.ID, u.Username)
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{
		Email:    u.Email,
		Token:    token,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}, nil
}

func conflictToAppError(err error) error {
	switch {
	case errors.Is(err, ErrEmailConflict):
		return ErrEmailTaken
	case errors.Is(err, ErrUsernameConflict):
		return ErrUsernameTaken
	default:
		return err
	}
}
