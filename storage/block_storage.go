package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/config"
)

const uploadRetries = 3

// WalletBackup is the off-site form of a custody record: identity plus the
// sealed private key exactly as stored. Plaintext key material never appears
// here.
type WalletBackup struct {
	ID                  string `json:"id"`
	Pubkey              string `json:"pubkey"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
	Salt                string `json:"salt"`
}

// BlockStorage retains encrypted wallet records in an S3 bucket so custody
// survives loss of the primary store.
type BlockStorage struct {
	cfg      config.Config
	session  *session.Session
	s3Client *s3.S3
	logger   *logrus.Logger
}

func NewBlockStorage(cfg config.Config) (*BlockStorage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.BlockStorage.Region),
		Endpoint:         aws.String(cfg.BlockStorage.Host),
		Credentials:      credentials.NewStaticCredentials(cfg.BlockStorage.AccessKey, cfg.BlockStorage.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return &BlockStorage{
		cfg:      cfg,
		session:  sess,
		s3Client: s3.New(sess),
		logger:   logrus.WithField("module", "block_storage").Logger,
	}, nil
}

func backupKey(walletID string) string {
	return fmt.Sprintf("wallets/%s.json", walletID)
}

// UploadWalletBackup writes the record to the bucket, retrying transient
// failures.
func (bs *BlockStorage) UploadWalletBackup(backup WalletBackup) error {
	content, err := json.Marshal(backup)
	if err != nil {
		return fmt.Errorf("fail to marshal wallet backup, err: %w", err)
	}

	key := backupKey(backup.ID)
	bs.logger.Infoln("upload wallet backup", key, "bucket", bs.cfg.BlockStorage.Bucket)

	for i := 0; i < uploadRetries; i++ {
		output, putErr := bs.s3Client.PutObjectWithContext(context.TODO(), &s3.PutObjectInput{
			Bucket:        aws.String(bs.cfg.BlockStorage.Bucket),
			Key:           aws.String(key),
			Body:          aws.ReadSeekCloser(bytes.NewReader(content)),
			ContentLength: aws.Int64(int64(len(content))),
		})
		if putErr == nil {
			if output != nil {
				bs.logger.Infof("upload wallet backup %s success, version id: %s", key, aws.StringValue(output.VersionId))
			}
			return nil
		}
		err = putErr
		bs.logger.Error(err)
	}
	return err
}

// GetWalletBackup fetches the stored record for a wallet; the restore path.
func (bs *BlockStorage) GetWalletBackup(walletID string) (WalletBackup, error) {
	output, err := bs.s3Client.GetObjectWithContext(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(backupKey(walletID)),
	})
	if err != nil {
		bs.logger.Error("error getting wallet backup: ", err)
		return WalletBackup{}, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			bs.logger.Error(err)
		}
	}()

	content, err := io.ReadAll(output.Body)
	if err != nil {
		return WalletBackup{}, err
	}
	var backup WalletBackup
	if err := json.Unmarshal(content, &backup); err != nil {
		return WalletBackup{}, fmt.Errorf("fail to unmarshal wallet backup, err: %w", err)
	}
	return backup, nil
}

func (bs *BlockStorage) DeleteWalletBackup(walletID string) error {
	key := backupKey(walletID)
	_, err := bs.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(bs.cfg.BlockStorage.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		bs.logger.Error(err)
		return err
	}
	bs.logger.Infof("delete wallet backup %s success", key)
	return nil
}
