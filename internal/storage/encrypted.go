package storage

// TokenCipher encrypts and decrypts stored account credentials.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// EncryptedStorage decorates a Storage so account tokens are encrypted at
// rest. All other operations pass through unchanged.
type EncryptedStorage struct {
	Storage
	cipher TokenCipher
}

// NewEncryptedStorage wraps store so account credentials are run through
// cipher on every save and load.
func NewEncryptedStorage(store Storage, cipher TokenCipher) *EncryptedStorage {
	return &EncryptedStorage{Storage: store, cipher: cipher}
}

func (s *EncryptedStorage) SaveAccount(account *Account) error {
	sealed := *account

	token, err := s.cipher.Encrypt(account.AccessToken)
	if err != nil {
		return err
	}
	secret, err := s.cipher.Encrypt(account.AccessSecret)
	if err != nil {
		return err
	}
	sealed.AccessToken = token
	sealed.AccessSecret = secret

	if err := s.Storage.SaveAccount(&sealed); err != nil {
		return err
	}
	account.ID = sealed.ID
	return nil
}

func (s *EncryptedStorage) GetAccount(userID int64, channelName string) (*Account, error) {
	account, err := s.Storage.GetAccount(userID, channelName)
	if err != nil {
		return nil, err
	}
	return s.open(account)
}

func (s *EncryptedStorage) GetAccountByIdentifier(channelName, identifier string) (*Account, error) {
	account, err := s.Storage.GetAccountByIdentifier(channelName, identifier)
	if err != nil {
		return nil, err
	}
	return s.open(account)
}

func (s *EncryptedStorage) open(account *Account) (*Account, error) {
	if account == nil {
		return nil, nil
	}

	token, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}
	secret, err := s.cipher.Decrypt(account.AccessSecret)
	if err != nil {
		return nil, err
	}

	opened := *account
	opened.AccessToken = token
	opened.AccessSecret = secret
	return &opened, nil
}
